package glean

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// Client provides typed access to the glean API on top of a Session. The
// session's token handling (bearer attachment, refresh-on-401) applies to
// every call.
type Client struct {
	*Session
}

// NewClient wraps an authenticated session.
func NewClient(session *Session) *Client {
	return &Client{Session: session}
}

// Login authenticates with email and password and stores the issued token
// pair. A rejected login clears any stale credentials and is surfaced as-is.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.StoreTokens(TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListSubscriptions returns the user's subscriptions. folderID filters by
// folder when non-nil; point it at an empty string for ungrouped feeds.
func (c *Client) ListSubscriptions(ctx context.Context, folderID *string) ([]Subscription, error) {
	var query url.Values
	if folderID != nil {
		query = url.Values{"folder_id": {*folderID}}
	}
	var subs []Subscription
	if err := c.Get(ctx, "/feeds", query, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetSubscription returns one subscription.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := c.Get(ctx, "/feeds/"+id, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// DiscoverFeed discovers the feed behind req.URL and subscribes to it.
func (c *Client) DiscoverFeed(ctx context.Context, req DiscoverFeedRequest) (*Subscription, error) {
	var sub Subscription
	if err := c.Post(ctx, "/feeds/discover", req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubscription patches a subscription's title or folder assignment.
func (c *Client) UpdateSubscription(ctx context.Context, id string, req UpdateSubscriptionRequest) (*Subscription, error) {
	var sub Subscription
	if err := c.Patch(ctx, "/feeds/"+id, req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription unsubscribes from a feed.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.Delete(ctx, "/feeds/"+id, nil)
}

// BatchDeleteSubscriptions unsubscribes from several feeds at once.
func (c *Client) BatchDeleteSubscriptions(ctx context.Context, ids []string) (*BatchDeleteResult, error) {
	var result BatchDeleteResult
	if err := c.Post(ctx, "/feeds/batch-delete", BatchDeleteRequest{SubscriptionIDs: ids}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshFeed asks the backend to fetch one feed now.
func (c *Client) RefreshFeed(ctx context.Context, subscriptionID string) error {
	return c.Post(ctx, "/feeds/"+subscriptionID+"/refresh", nil, nil)
}

// RefreshAllFeeds asks the backend to fetch every subscribed feed now.
func (c *Client) RefreshAllFeeds(ctx context.Context) error {
	return c.Post(ctx, "/feeds/refresh-all", nil, nil)
}

// ImportOPML uploads an OPML file for the backend to parse and subscribe
// from. Parsing happens server-side; this only streams the bytes up.
func (c *Client) ImportOPML(ctx context.Context, filename string, contents io.Reader) (*OPMLImportResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, contents); err != nil {
		return nil, fmt.Errorf("read opml: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	var result OPMLImportResult
	req := request{
		method:      http.MethodPost,
		path:        "/feeds/import",
		body:        buf.Bytes(),
		contentType: form.FormDataContentType(),
	}
	if err := c.invoke(ctx, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExportOPML downloads the user's subscriptions as OPML XML.
func (c *Client) ExportOPML(ctx context.Context) ([]byte, error) {
	var data []byte
	if err := c.Get(ctx, "/feeds/export", nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// FolderTree returns the folder hierarchy. folderType filters by "feed" or
// "bookmark" when non-empty.
func (c *Client) FolderTree(ctx context.Context, folderType string) ([]FolderNode, error) {
	var query url.Values
	if folderType != "" {
		query = url.Values{"type": {folderType}}
	}
	var resp FolderTreeResponse
	if err := c.Get(ctx, "/folders", query, &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

// CreateFolder creates a folder.
func (c *Client) CreateFolder(ctx context.Context, req FolderCreate) (*Folder, error) {
	var folder Folder
	if err := c.Post(ctx, "/folders", req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// RenameFolder renames a folder.
func (c *Client) RenameFolder(ctx context.Context, id, name string) (*Folder, error) {
	var folder Folder
	if err := c.Patch(ctx, "/folders/"+id, map[string]string{"name": name}, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// DeleteFolder deletes a folder.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.Delete(ctx, "/folders/"+id, nil)
}

// MoveFolder reparents a folder. A nil parentID moves it to the top level.
func (c *Client) MoveFolder(ctx context.Context, id string, parentID *string) (*Folder, error) {
	var folder Folder
	body := map[string]*string{"parent_id": parentID}
	if err := c.Post(ctx, "/folders/"+id+"/move", body, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// ReorderFolders applies new sibling positions.
func (c *Client) ReorderFolders(ctx context.Context, orders []FolderOrder) error {
	return c.Post(ctx, "/folders/reorder", map[string][]FolderOrder{"orders": orders}, nil)
}

// ListTags returns every tag with usage counts.
func (c *Client) ListTags(ctx context.Context) ([]TagWithCounts, error) {
	var resp struct {
		Tags []TagWithCounts `json:"tags"`
	}
	if err := c.Get(ctx, "/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

// CreateTag creates a tag.
func (c *Client) CreateTag(ctx context.Context, req TagCreate) (*Tag, error) {
	var tag Tag
	if err := c.Post(ctx, "/tags", req, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// UpdateTag patches a tag.
func (c *Client) UpdateTag(ctx context.Context, id string, req TagUpdate) (*Tag, error) {
	var tag Tag
	if err := c.Patch(ctx, "/tags/"+id, req, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag deletes a tag.
func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return c.Delete(ctx, "/tags/"+id, nil)
}

// BatchTag adds or removes one tag across many bookmarks or entries.
func (c *Client) BatchTag(ctx context.Context, req TagBatchRequest) error {
	return c.Post(ctx, "/tags/batch", req, nil)
}

// ListEntries returns a page of entries matching the query.
func (c *Client) ListEntries(ctx context.Context, q EntryQuery) (*EntryList, error) {
	query := url.Values{}
	if q.FeedID != "" {
		query.Set("feed_id", q.FeedID)
	}
	if q.IsRead != nil {
		query.Set("is_read", strconv.FormatBool(*q.IsRead))
	}
	if q.IsLiked != nil {
		query.Set("is_liked", strconv.FormatBool(*q.IsLiked))
	}
	if q.ReadLater != nil {
		query.Set("read_later", strconv.FormatBool(*q.ReadLater))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}
	var list EntryList
	if err := c.Get(ctx, "/entries", query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetEntry returns one entry with the caller's read state merged in.
func (c *Client) GetEntry(ctx context.Context, id string) (*Entry, error) {
	var entry Entry
	if err := c.Get(ctx, "/entries/"+id, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntryState patches per-user read/liked/read-later flags.
func (c *Client) UpdateEntryState(ctx context.Context, id string, req EntryStateUpdate) (*Entry, error) {
	var entry Entry
	if err := c.Patch(ctx, "/entries/"+id, req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkAllRead marks every entry read, optionally scoped to one feed.
func (c *Client) MarkAllRead(ctx context.Context, feedID string) error {
	var body any
	if feedID != "" {
		body = map[string]string{"feed_id": feedID}
	}
	return c.Post(ctx, "/entries/mark-all-read", body, nil)
}

// ListBookmarks returns a page of bookmarks matching the query.
func (c *Client) ListBookmarks(ctx context.Context, q BookmarkQuery) (*BookmarkList, error) {
	query := url.Values{}
	if q.FolderID != "" {
		query.Set("folder_id", q.FolderID)
	}
	if q.TagID != "" {
		query.Set("tag_id", q.TagID)
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}
	var list BookmarkList
	if err := c.Get(ctx, "/bookmarks", query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateBookmark saves an entry or a raw URL as a bookmark.
func (c *Client) CreateBookmark(ctx context.Context, req BookmarkCreate) (*Bookmark, error) {
	var bm Bookmark
	if err := c.Post(ctx, "/bookmarks", req, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

// GetBookmark returns one bookmark.
func (c *Client) GetBookmark(ctx context.Context, id string) (*Bookmark, error) {
	var bm Bookmark
	if err := c.Get(ctx, "/bookmarks/"+id, nil, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

// UpdateBookmark patches a bookmark.
func (c *Client) UpdateBookmark(ctx context.Context, id string, req BookmarkUpdate) (*Bookmark, error) {
	var bm Bookmark
	if err := c.Patch(ctx, "/bookmarks/"+id, req, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

// DeleteBookmark deletes a bookmark.
func (c *Client) DeleteBookmark(ctx context.Context, id string) error {
	return c.Delete(ctx, "/bookmarks/"+id, nil)
}

// AddBookmarkFolder files a bookmark under a folder.
func (c *Client) AddBookmarkFolder(ctx context.Context, bookmarkID, folderID string) (*Bookmark, error) {
	var bm Bookmark
	if err := c.Post(ctx, "/bookmarks/"+bookmarkID+"/folders", map[string]string{"folder_id": folderID}, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

// RemoveBookmarkFolder removes a bookmark from a folder.
func (c *Client) RemoveBookmarkFolder(ctx context.Context, bookmarkID, folderID string) (*Bookmark, error) {
	var bm Bookmark
	if err := c.Delete(ctx, "/bookmarks/"+bookmarkID+"/folders/"+folderID, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

// AddBookmarkTag tags a bookmark.
func (c *Client) AddBookmarkTag(ctx context.Context, bookmarkID, tagID string) (*Bookmark, error) {
	var bm Bookmark
	if err := c.Post(ctx, "/bookmarks/"+bookmarkID+"/tags", map[string]string{"tag_id": tagID}, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

// RemoveBookmarkTag removes a tag from a bookmark.
func (c *Client) RemoveBookmarkTag(ctx context.Context, bookmarkID, tagID string) (*Bookmark, error) {
	var bm Bookmark
	if err := c.Delete(ctx, "/bookmarks/"+bookmarkID+"/tags/"+tagID, &bm); err != nil {
		return nil, err
	}
	return &bm, nil
}

// AdminLogin authenticates against the admin endpoint. Admin sessions are
// access-token only; when it expires the session is terminal.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (*AdminLoginResponse, error) {
	var resp AdminLoginResponse
	err := c.Post(ctx, "/admin/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.StoreTokens(TokenPair{AccessToken: resp.AccessToken}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminStats returns dashboard statistics.
func (c *Client) AdminStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.Get(ctx, "/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminUsers returns a page of the user list.
func (c *Client) AdminUsers(ctx context.Context, page, perPage int) (*UserList, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}
	var list UserList
	if err := c.Get(ctx, "/admin/users", query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SetUserStatus activates or deactivates a user account.
func (c *Client) SetUserStatus(ctx context.Context, userID string, active bool) (*UserListItem, error) {
	var item UserListItem
	if err := c.Patch(ctx, "/admin/users/"+userID+"/status", map[string]bool{"is_active": active}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Health reports backend component health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.Get(ctx, "/admin/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
