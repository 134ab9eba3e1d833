package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glean-rss/skim/internal/glean"
)

type loginModel struct {
	email    textinput.Model
	password textinput.Model
	onPwd    bool
	busy     bool
	errMsg   string
}

func newLoginModel() loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 120
	email.Width = 40

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 120
	password.Width = 40

	return loginModel{email: email, password: password}
}

func (l *loginModel) focusEmail() {
	l.onPwd = false
	l.email.Focus()
	l.password.Blur()
}

func (l *loginModel) focusPassword() {
	l.onPwd = true
	l.password.Focus()
	l.email.Blur()
}

func (l loginModel) init() tea.Cmd {
	return textinput.Blink
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyDown, tea.KeyUp:
		if m.login.onPwd {
			m.login.focusEmail()
		} else {
			m.login.focusPassword()
		}
		return m, nil

	case tea.KeyEnter:
		if !m.login.onPwd {
			m.login.focusPassword()
			return m, nil
		}
		email := strings.TrimSpace(m.login.email.Value())
		password := m.login.password.Value()
		if email == "" || password == "" {
			m.login.errMsg = "email and password are required"
			return m, nil
		}
		m.login.busy = true
		m.login.errMsg = ""
		return m, m.loginCmd(email, password)
	}

	var cmd tea.Cmd
	if m.login.onPwd {
		m.login.password, cmd = m.login.password.Update(msg)
	} else {
		m.login.email, cmd = m.login.email.Update(msg)
	}
	return m, cmd
}

func (m Model) renderLogin() string {
	title := m.styles.Logo.Render("skim") + m.styles.MutedText.Render("  sign in to glean")

	lines := []string{
		title,
		"",
		m.styles.MutedText.Render("email") + "\n" + m.login.email.View(),
		"",
		m.styles.MutedText.Render("password") + "\n" + m.login.password.View(),
		"",
	}

	switch {
	case m.login.busy:
		lines = append(lines, m.styles.WarningText.Render("signing in..."))
	case m.login.errMsg != "":
		lines = append(lines, m.styles.DangerText.Render(m.login.errMsg))
	default:
		lines = append(lines, m.styles.FaintText.Render("enter to submit, tab to switch"))
	}

	form := m.styles.PanelBorder.Padding(1, 3).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, form)
}

func loginErrorText(err error) string {
	switch {
	case glean.IsUnauthorized(err):
		return "invalid email or password"
	case errors.Is(err, glean.ErrInvalidOrigin):
		return "server origin in config is not a valid http(s) URL"
	default:
		return err.Error()
	}
}
