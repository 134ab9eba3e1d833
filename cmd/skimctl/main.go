// skimctl drives a glean backend from the command line: credentials, feed
// management, OPML transfer, and the admin surface. It shares the config and
// token file with the skim TUI, so a login here is a login there.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/glean-rss/skim/internal/config"
	"github.com/glean-rss/skim/internal/glean"
)

func main() {
	os.Exit(run())
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: skimctl [-config path] <command> [args]

commands:
  login -email ADDR [-password PW]   sign in and store tokens
  logout                             discard stored tokens
  whoami                             show the signed-in user
  feeds                              list subscriptions
  add-feed URL                       subscribe to a feed
  rm-feed ID                         unsubscribe
  refresh-feed ID                    queue one feed for refresh
  refresh-all                        queue every feed for refresh
  import-opml FILE                   import subscriptions from OPML
  export-opml [-o FILE]              export subscriptions as OPML
  mark-all-read [-feed ID]           mark entries read
  health                             backend health check
  admin-login -user NAME [-password PW]
  admin-stats                        dashboard statistics
  admin-users                        list user accounts
  admin-set-status -user ID -active BOOL`)
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fail(err)
	}

	tokens := glean.NewFileTokenStore(cfg.TokensPath)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	session, err := glean.NewSession(glean.SessionOptions{
		Origin:   glean.StaticOrigin(cfg.Server),
		BasePath: cfg.APIPrefix,
		Timeout:  cfg.Timeout,
		Tokens:   tokens,
		Logger:   &logger,
	})
	if err != nil {
		return fail(err)
	}
	client := glean.NewClient(session)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, client, rest)
	case "logout":
		if err := tokens.Clear(); err != nil {
			return fail(err)
		}
		fmt.Println("logged out")
		return 0
	case "whoami":
		return cmdWhoami(ctx, client)
	case "feeds":
		return cmdFeeds(ctx, client)
	case "add-feed":
		return cmdAddFeed(ctx, client, rest)
	case "rm-feed":
		return cmdRmFeed(ctx, client, rest)
	case "refresh-feed":
		return cmdRefreshFeed(ctx, client, rest)
	case "refresh-all":
		if err := client.RefreshAllFeeds(ctx); err != nil {
			return fail(err)
		}
		fmt.Println("refresh queued for all feeds")
		return 0
	case "import-opml":
		return cmdImportOPML(ctx, client, rest)
	case "export-opml":
		return cmdExportOPML(ctx, client, rest)
	case "mark-all-read":
		return cmdMarkAllRead(ctx, client, rest)
	case "health":
		return cmdHealth(ctx, client)
	case "admin-login":
		return cmdAdminLogin(ctx, client, rest)
	case "admin-stats":
		return printJSONResult(func() (any, error) { return client.AdminStats(ctx) })
	case "admin-users":
		return cmdAdminUsers(ctx, client)
	case "admin-set-status":
		return cmdAdminSetStatus(ctx, client, rest)
	default:
		fmt.Fprintf(os.Stderr, "skimctl: unknown command %q\n", cmd)
		usage()
		return 2
	}
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "skimctl: %v\n", err)
	if glean.IsUnauthorized(err) {
		fmt.Fprintln(os.Stderr, "skimctl: run `skimctl login` first")
	}
	return 1
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fail(err)
	}
	return 0
}

func printJSONResult(fn func() (any, error)) int {
	v, err := fn()
	if err != nil {
		return fail(err)
	}
	return printJSON(v)
}

func cmdLogin(ctx context.Context, client *glean.Client, args []string) int {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (or SKIM_PASSWORD)")
	_ = fs.Parse(args)

	if *password == "" {
		*password = os.Getenv("SKIM_PASSWORD")
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "skimctl: login requires -email and -password (or SKIM_PASSWORD)")
		return 2
	}

	resp, err := client.Login(ctx, *email, *password)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("logged in as %s\n", resp.User.Email)
	return 0
}

func cmdWhoami(ctx context.Context, client *glean.Client) int {
	user, err := client.Me(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s (%s)\n", user.Email, user.ID)
	return 0
}

func cmdFeeds(ctx context.Context, client *glean.Client) int {
	subs, err := client.ListSubscriptions(ctx, nil)
	if err != nil {
		return fail(err)
	}
	for _, sub := range subs {
		fmt.Printf("%s\t%d unread\t%s\n", sub.ID, sub.UnreadCount, sub.DisplayTitle())
	}
	return 0
}

func cmdAddFeed(ctx context.Context, client *glean.Client, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: skimctl add-feed URL")
		return 2
	}
	sub, err := client.DiscoverFeed(ctx, glean.DiscoverFeedRequest{URL: args[0]})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("subscribed: %s (%s)\n", sub.DisplayTitle(), sub.ID)
	return 0
}

func cmdRmFeed(ctx context.Context, client *glean.Client, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: skimctl rm-feed ID")
		return 2
	}
	if err := client.DeleteSubscription(ctx, args[0]); err != nil {
		return fail(err)
	}
	fmt.Println("unsubscribed")
	return 0
}

func cmdRefreshFeed(ctx context.Context, client *glean.Client, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: skimctl refresh-feed ID")
		return 2
	}
	if err := client.RefreshFeed(ctx, args[0]); err != nil {
		return fail(err)
	}
	fmt.Println("refresh queued")
	return 0
}

func cmdImportOPML(ctx context.Context, client *glean.Client, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: skimctl import-opml FILE")
		return 2
	}
	file, err := os.Open(args[0])
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	result, err := client.ImportOPML(ctx, file.Name(), file)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("imported %d, skipped %d, errors %d\n", result.Imported, result.Skipped, len(result.Errors))
	return 0
}

func cmdExportOPML(ctx context.Context, client *glean.Client, args []string) int {
	fs := flag.NewFlagSet("export-opml", flag.ExitOnError)
	out := fs.String("o", "", "output file (default stdout)")
	_ = fs.Parse(args)

	data, err := client.ExportOPML(ctx)
	if err != nil {
		return fail(err)
	}
	if *out == "" {
		_, _ = os.Stdout.Write(data)
		return 0
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fail(err)
	}
	fmt.Printf("wrote %s\n", *out)
	return 0
}

func cmdMarkAllRead(ctx context.Context, client *glean.Client, args []string) int {
	fs := flag.NewFlagSet("mark-all-read", flag.ExitOnError)
	feedID := fs.String("feed", "", "limit to one feed")
	_ = fs.Parse(args)

	if err := client.MarkAllRead(ctx, *feedID); err != nil {
		return fail(err)
	}
	fmt.Println("marked read")
	return 0
}

func cmdHealth(ctx context.Context, client *glean.Client) int {
	status, err := client.Health(ctx)
	if err != nil {
		return fail(err)
	}
	return printJSON(status)
}

func cmdAdminLogin(ctx context.Context, client *glean.Client, args []string) int {
	fs := flag.NewFlagSet("admin-login", flag.ExitOnError)
	username := fs.String("user", "", "admin username")
	password := fs.String("password", "", "admin password (or SKIM_PASSWORD)")
	_ = fs.Parse(args)

	if *password == "" {
		*password = os.Getenv("SKIM_PASSWORD")
	}
	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "skimctl: admin-login requires -user and -password (or SKIM_PASSWORD)")
		return 2
	}

	resp, err := client.AdminLogin(ctx, *username, *password)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("logged in as admin %s\n", resp.Admin.Username)
	return 0
}

func cmdAdminUsers(ctx context.Context, client *glean.Client) int {
	list, err := client.AdminUsers(ctx, 1, 100)
	if err != nil {
		return fail(err)
	}
	for _, u := range list.Items {
		status := "active"
		if !u.IsActive {
			status = "disabled"
		}
		fmt.Printf("%s\t%s\t%s\n", u.ID, u.Email, status)
	}
	return 0
}

func cmdAdminSetStatus(ctx context.Context, client *glean.Client, args []string) int {
	fs := flag.NewFlagSet("admin-set-status", flag.ExitOnError)
	userID := fs.String("user", "", "user id")
	active := fs.Bool("active", true, "whether the account may sign in")
	_ = fs.Parse(args)

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "skimctl: admin-set-status requires -user")
		return 2
	}
	item, err := client.SetUserStatus(ctx, *userID, *active)
	if err != nil {
		return fail(err)
	}
	status := "active"
	if !item.IsActive {
		status = "disabled"
	}
	fmt.Printf("%s is now %s\n", item.Email, status)
	return 0
}
