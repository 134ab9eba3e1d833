package glean

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestClient_LoginStoresIssuedPair(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email != "user@example.com" || body.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(LoginResponse{
			AccessToken:  "A1",
			RefreshToken: "R1",
			TokenType:    "bearer",
			User:         User{ID: "u1", Email: "user@example.com"},
		})
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	client := NewClient(newTestSession(t, server.URL, SessionOptions{Tokens: tokens}))

	resp, err := client.Login(context.Background(), "user@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if resp.User.ID != "u1" {
		t.Fatalf("user = %+v, want id u1", resp.User)
	}
	pair, _ := tokens.Load()
	if pair.AccessToken != "A1" || pair.RefreshToken != "R1" {
		t.Fatalf("stored tokens = %+v, want A1/R1", pair)
	}
}

func TestClient_QueriesAndBodiesEncode(t *testing.T) {
	t.Parallel()

	var gotFeedsQuery url.Values
	var gotEntriesQuery url.Values
	var gotEntryPatch []byte
	var gotMarkAllBody []byte
	var gotStatusPatch []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/feeds" && r.Method == http.MethodGet:
			gotFeedsQuery = r.URL.Query()
			_, _ = w.Write([]byte(`[{"id":"s1","feed":{"id":"f1","title":"Example"},"unread_count":4}]`))
		case r.URL.Path == "/api/entries" && r.Method == http.MethodGet:
			gotEntriesQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(EntryList{Items: []Entry{{ID: "e1"}}, Total: 1, Page: 2, PerPage: 25})
		case r.URL.Path == "/api/entries/e1" && r.Method == http.MethodPatch:
			gotEntryPatch, _ = io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(Entry{ID: "e1", IsRead: true})
		case r.URL.Path == "/api/entries/mark-all-read" && r.Method == http.MethodPost:
			gotMarkAllBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/admin/users/u9/status" && r.Method == http.MethodPatch:
			gotStatusPatch, _ = io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(UserListItem{ID: "u9", IsActive: false})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(newTestSession(t, server.URL, SessionOptions{}))
	ctx := context.Background()

	ungrouped := ""
	subs, err := client.ListSubscriptions(ctx, &ungrouped)
	if err != nil {
		t.Fatalf("ListSubscriptions returned error: %v", err)
	}
	if len(subs) != 1 || subs[0].UnreadCount != 4 {
		t.Fatalf("subscriptions = %#v, want one with 4 unread", subs)
	}
	if got, ok := gotFeedsQuery["folder_id"]; !ok || got[0] != "" {
		t.Fatalf("feeds query = %v, want folder_id present and empty", gotFeedsQuery)
	}

	unread := false
	list, err := client.ListEntries(ctx, EntryQuery{FeedID: "f1", IsRead: &unread, Page: 2, PerPage: 25})
	if err != nil {
		t.Fatalf("ListEntries returned error: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("entry list = %#v, want one item", list)
	}
	if gotEntriesQuery.Get("feed_id") != "f1" ||
		gotEntriesQuery.Get("is_read") != "false" ||
		gotEntriesQuery.Get("page") != "2" ||
		gotEntriesQuery.Get("per_page") != "25" {
		t.Fatalf("entries query = %v, want filters encoded", gotEntriesQuery)
	}
	if gotEntriesQuery.Has("is_liked") || gotEntriesQuery.Has("read_later") {
		t.Fatalf("entries query = %v, want nil filters omitted", gotEntriesQuery)
	}

	read := true
	if _, err := client.UpdateEntryState(ctx, "e1", EntryStateUpdate{IsRead: &read}); err != nil {
		t.Fatalf("UpdateEntryState returned error: %v", err)
	}
	if string(gotEntryPatch) != `{"is_read":true}` {
		t.Fatalf("entry patch body = %s, want only is_read", gotEntryPatch)
	}

	if err := client.MarkAllRead(ctx, ""); err != nil {
		t.Fatalf("MarkAllRead returned error: %v", err)
	}
	if len(gotMarkAllBody) != 0 {
		t.Fatalf("mark-all-read body = %s, want empty without a feed scope", gotMarkAllBody)
	}

	item, err := client.SetUserStatus(ctx, "u9", false)
	if err != nil {
		t.Fatalf("SetUserStatus returned error: %v", err)
	}
	if item.IsActive {
		t.Fatalf("user = %+v, want deactivated", item)
	}
	if string(gotStatusPatch) != `{"is_active":false}` {
		t.Fatalf("status patch body = %s, want is_active false", gotStatusPatch)
	}
}

func TestClient_OPMLImportAndExport(t *testing.T) {
	t.Parallel()

	const opml = `<opml version="2.0"><body><outline xmlUrl="https://example.com/feed.xml"/></body></opml>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/feeds/import" && r.Method == http.MethodPost:
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if header.Filename != "subs.opml" || string(data) != opml {
				http.Error(w, "unexpected upload", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(OPMLImportResult{Imported: 1})
		case r.URL.Path == "/api/feeds/export" && r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "text/x-opml")
			_, _ = w.Write([]byte(opml))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(newTestSession(t, server.URL, SessionOptions{}))
	ctx := context.Background()

	result, err := client.ImportOPML(ctx, "subs.opml", strings.NewReader(opml))
	if err != nil {
		t.Fatalf("ImportOPML returned error: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("import result = %+v, want 1 imported", result)
	}

	exported, err := client.ExportOPML(ctx)
	if err != nil {
		t.Fatalf("ExportOPML returned error: %v", err)
	}
	if string(exported) != opml {
		t.Fatalf("exported opml = %q, want raw body returned undecoded", exported)
	}
}

func TestClient_DeleteWithDecodedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bookmarks/b1/tags/t1" || r.Method != http.MethodDelete {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Bookmark{ID: "b1", Title: "Kept", Tags: nil})
	}))
	t.Cleanup(server.Close)

	client := NewClient(newTestSession(t, server.URL, SessionOptions{}))
	bm, err := client.RemoveBookmarkTag(context.Background(), "b1", "t1")
	if err != nil {
		t.Fatalf("RemoveBookmarkTag returned error: %v", err)
	}
	if bm.ID != "b1" || len(bm.Tags) != 0 {
		t.Fatalf("bookmark = %+v, want b1 with no tags", bm)
	}
}

func TestClient_AdminLoginStoresAccessOnlyPair(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/auth/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(AdminLoginResponse{
			AccessToken: "ADM1",
			TokenType:   "bearer",
			Admin:       AdminUser{ID: "a1", Username: "root", Role: "admin"},
		})
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	client := NewClient(newTestSession(t, server.URL, SessionOptions{Tokens: tokens}))

	resp, err := client.AdminLogin(context.Background(), "root", "s3cret")
	if err != nil {
		t.Fatalf("AdminLogin returned error: %v", err)
	}
	if resp.Admin.Username != "root" {
		t.Fatalf("admin = %+v, want username root", resp.Admin)
	}
	pair, _ := tokens.Load()
	if pair.AccessToken != "ADM1" || pair.RefreshToken != "" {
		t.Fatalf("stored tokens = %+v, want access-only pair", pair)
	}
}
