package realtime

// EventType identifies the kind of envelope exchanged over the connection.
type EventType string

// Inbound event types pushed by the server.
const (
	EventNotification      EventType = "notification"
	EventOnlineCount       EventType = "online_count"
	EventReaction          EventType = "reaction"
	EventNewComment        EventType = "new_comment"
	EventArticleUpdate     EventType = "article_update"
	EventTyping            EventType = "typing"
	EventAchievementUnlock EventType = "achievement_unlock"
	EventPong              EventType = "pong"
)

// Outbound request types. EventTyping is used in both directions.
const (
	EventPing               EventType = "ping"
	EventSubscribeArticle   EventType = "subscribe_article"
	EventUnsubscribeArticle EventType = "unsubscribe_article"
)

// InboundEventTypes lists every event type the server is known to push.
var InboundEventTypes = []EventType{
	EventNotification,
	EventOnlineCount,
	EventReaction,
	EventNewComment,
	EventArticleUpdate,
	EventTyping,
	EventAchievementUnlock,
	EventPong,
}

// Known reports whether t is one of the inbound event types.
func (t EventType) Known() bool {
	for _, known := range InboundEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Actor is the user that caused a notification.
type Actor struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// NotificationPayload is the payload of a notification event.
type NotificationPayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	Actor     *Actor `json:"actor,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// OnlineCountPayload is the payload of an online_count event.
type OnlineCountPayload struct {
	Count int64 `json:"count"`
}

// ReactionCount is the aggregate for one emoji on an article.
type ReactionCount struct {
	Emoji     string `json:"emoji"`
	Count     int64  `json:"count"`
	IsReacted bool   `json:"isReacted"`
}

// ReactionPayload is the payload of a reaction event.
type ReactionPayload struct {
	ArticleID string          `json:"articleId"`
	Reactions []ReactionCount `json:"reactions"`
}

// Comment is a comment pushed with a new_comment event.
type Comment struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Author    Actor  `json:"author"`
	CreatedAt string `json:"createdAt"`
}

// NewCommentPayload is the payload of a new_comment event.
type NewCommentPayload struct {
	ArticleID string  `json:"articleId"`
	Comment   Comment `json:"comment"`
}

// TypingPayload is the payload of an inbound typing event.
type TypingPayload struct {
	ArticleID string `json:"articleId"`
	UserID    string `json:"userId"`
}

// AchievementPayload is the payload of an achievement_unlock event.
type AchievementPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
}

// ArticlePayload is sent with subscribe_article, unsubscribe_article and
// outbound typing requests.
type ArticlePayload struct {
	ArticleID string `json:"articleId"`
}
