package glean

import (
	"time"
)

// Timestamps arrive as ISO 8601 strings, with or without a zone depending on
// the backend's serializer, so they are kept as strings and parsed on demand.
func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// User mirrors /auth/me.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// LoginResponse mirrors /auth/login.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// Feed describes a source feed shared across subscribers.
type Feed struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	SiteURL       string `json:"site_url"`
	LastFetchedAt string `json:"last_fetched_at"`
	FetchError    string `json:"fetch_error"`
}

// Subscription describes one user's subscription to a feed.
type Subscription struct {
	ID          string `json:"id"`
	Feed        Feed   `json:"feed"`
	FolderID    string `json:"folder_id"`
	CustomTitle string `json:"custom_title"`
	UnreadCount int    `json:"unread_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// DisplayTitle returns the user's custom title when set, else the feed title,
// else the feed URL.
func (s Subscription) DisplayTitle() string {
	if s.CustomTitle != "" {
		return s.CustomTitle
	}
	if s.Feed.Title != "" {
		return s.Feed.Title
	}
	return s.Feed.URL
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (s Subscription) ParsedCreatedAt() time.Time { return parseTime(s.CreatedAt) }

// DiscoverFeedRequest subscribes the user to a feed by URL.
type DiscoverFeedRequest struct {
	URL      string  `json:"url"`
	FolderID *string `json:"folder_id,omitempty"`
}

// UpdateSubscriptionRequest patches a subscription. Nil fields are left
// unchanged; FolderID pointing at an empty string moves the feed out of its
// folder.
type UpdateSubscriptionRequest struct {
	CustomTitle *string `json:"custom_title,omitempty"`
	FolderID    *string `json:"folder_id,omitempty"`
}

// BatchDeleteRequest removes several subscriptions at once.
type BatchDeleteRequest struct {
	SubscriptionIDs []string `json:"subscription_ids"`
}

// BatchDeleteResult mirrors /feeds/batch-delete.
type BatchDeleteResult struct {
	Deleted int      `json:"deleted"`
	Failed  []string `json:"failed"`
}

// OPMLImportResult mirrors /feeds/import.
type OPMLImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Folder mirrors a single folder resource.
type Folder struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Type      string `json:"type"` // "feed" or "bookmark"
	ParentID  string `json:"parent_id"`
	Position  int    `json:"position"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// FolderNode is one node of the folder tree.
type FolderNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Position int          `json:"position"`
	Children []FolderNode `json:"children"`
}

// FolderTreeResponse mirrors GET /folders.
type FolderTreeResponse struct {
	Folders []FolderNode `json:"folders"`
}

// FolderCreate creates a folder.
type FolderCreate struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	ParentID *string `json:"parent_id,omitempty"`
}

// FolderOrder assigns a position to a folder during reorder.
type FolderOrder struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// Tag mirrors a tag resource.
type Tag struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt string `json:"created_at"`
}

// TagWithCounts adds usage counts for list views.
type TagWithCounts struct {
	Tag
	BookmarkCount int `json:"bookmark_count"`
	EntryCount    int `json:"entry_count"`
}

// TagCreate creates a tag.
type TagCreate struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

// TagUpdate patches a tag.
type TagUpdate struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// TagBatchRequest adds or removes one tag on many targets.
type TagBatchRequest struct {
	Action     string   `json:"action"`      // "add" or "remove"
	TagID      string   `json:"tag_id"`      //
	TargetType string   `json:"target_type"` // "bookmark" or "user_entry"
	TargetIDs  []string `json:"target_ids"`
}

// Entry is one article, merged with the caller's per-user state.
type Entry struct {
	ID          string `json:"id"`
	FeedID      string `json:"feed_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Content     string `json:"content"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
	CreatedAt   string `json:"created_at"`
	IsRead      bool   `json:"is_read"`
	IsLiked     *bool  `json:"is_liked"`
	ReadLater   bool   `json:"read_later"`
	ReadAt      string `json:"read_at"`
}

// ParsedPublishedAt returns the parsed PublishedAt timestamp.
func (e Entry) ParsedPublishedAt() time.Time { return parseTime(e.PublishedAt) }

// Liked reports whether the entry is starred. The backend sends null for
// entries the user never touched.
func (e Entry) Liked() bool { return e.IsLiked != nil && *e.IsLiked }

// EntryList mirrors GET /entries.
type EntryList struct {
	Items   []Entry `json:"items"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
	HasMore bool    `json:"has_more"`
}

// EntryQuery filters GET /entries. Nil booleans are left out of the query.
type EntryQuery struct {
	FeedID    string
	IsRead    *bool
	IsLiked   *bool
	ReadLater *bool
	Page      int
	PerPage   int
}

// EntryStateUpdate patches per-user entry state. Nil fields are untouched.
type EntryStateUpdate struct {
	IsRead    *bool `json:"is_read,omitempty"`
	IsLiked   *bool `json:"is_liked,omitempty"`
	ReadLater *bool `json:"read_later,omitempty"`
}

// BookmarkFolderRef is the compact folder reference embedded in bookmarks.
type BookmarkFolderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookmarkTagRef is the compact tag reference embedded in bookmarks.
type BookmarkTagRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Bookmark mirrors a bookmark resource.
type Bookmark struct {
	ID             string              `json:"id"`
	UserID         string              `json:"user_id"`
	EntryID        string              `json:"entry_id"`
	URL            string              `json:"url"`
	Title          string              `json:"title"`
	Excerpt        string              `json:"excerpt"`
	SnapshotStatus string              `json:"snapshot_status"`
	Folders        []BookmarkFolderRef `json:"folders"`
	Tags           []BookmarkTagRef    `json:"tags"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (b Bookmark) ParsedCreatedAt() time.Time { return parseTime(b.CreatedAt) }

// BookmarkList mirrors GET /bookmarks.
type BookmarkList struct {
	Items   []Bookmark `json:"items"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	Pages   int        `json:"pages"`
}

// BookmarkQuery filters GET /bookmarks.
type BookmarkQuery struct {
	FolderID string
	TagID    string
	Search   string
	Page     int
	PerPage  int
}

// BookmarkCreate creates a bookmark from an entry or a raw URL. One of
// EntryID or URL must be set.
type BookmarkCreate struct {
	EntryID   *string  `json:"entry_id,omitempty"`
	URL       *string  `json:"url,omitempty"`
	Title     *string  `json:"title,omitempty"`
	Excerpt   *string  `json:"excerpt,omitempty"`
	FolderIDs []string `json:"folder_ids,omitempty"`
	TagIDs    []string `json:"tag_ids,omitempty"`
}

// BookmarkUpdate patches a bookmark.
type BookmarkUpdate struct {
	Title   *string `json:"title,omitempty"`
	Excerpt *string `json:"excerpt,omitempty"`
}

// AdminLoginResponse mirrors /admin/auth/login. Admin sessions carry no
// refresh token; expiry is terminal.
type AdminLoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Admin       AdminUser `json:"admin"`
}

// AdminUser mirrors the admin account resource.
type AdminUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
	LastLoginAt string `json:"last_login_at"`
}

// DashboardStats mirrors /admin/stats.
type DashboardStats struct {
	TotalUsers         int `json:"total_users"`
	ActiveUsers        int `json:"active_users"`
	TotalFeeds         int `json:"total_feeds"`
	TotalEntries       int `json:"total_entries"`
	TotalSubscriptions int `json:"total_subscriptions"`
	NewUsersToday      int `json:"new_users_today"`
	NewEntriesToday    int `json:"new_entries_today"`
}

// UserListItem is one row of the admin user list.
type UserListItem struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	LastLoginAt string `json:"last_login_at"`
}

// UserList mirrors /admin/users.
type UserList struct {
	Items      []UserListItem `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

// HealthStatus mirrors /admin/health.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}
