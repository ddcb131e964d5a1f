package bot

import (
	"fmt"
	"strings"

	"group_helper/internal/model"
)

const commandMenu = `📌 Commands:
/start - Start bot
/help - Show help
/whoami - Show your info
/newpost - Schedule a post
/viewposts - List scheduled posts
/addadmin <username> - Request to add a new admin
/approve <username> - Approve a pending admin request (super admin only)`

const (
	markerRecurring = "🔁"
	markerOnce      = "📅"
)

// Role is the admin tier of a user within a chat.
type Role int

// Admin tiers, lowest first.
const (
	RoleNone Role = iota
	RoleChatAdmin
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "✅ Super Admin"
	case RoleChatAdmin:
		return "✅ Group Admin"
	default:
		return "❌ No"
	}
}

// Identity describes the sender of a message.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// FormatWhoami renders the /whoami reply.
func FormatWhoami(who Identity, chatID int64, role Role) string {
	username := who.Username
	if username == "" {
		username = "N/A"
	}
	name := strings.TrimSpace(who.FirstName + " " + who.LastName)

	var b strings.Builder
	b.WriteString("👤 Your Info:\n")
	fmt.Fprintf(&b, "- ID: %d\n", who.ID)
	fmt.Fprintf(&b, "- Username: @%s\n", username)
	fmt.Fprintf(&b, "- Name: %s\n", name)
	fmt.Fprintf(&b, "- Chat ID: %d\n", chatID)
	fmt.Fprintf(&b, "- Admin: %s", role)
	return b.String()
}

// FormatClock renders a time of day as H:MM.
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%d:%02d", hour, minute)
}

// FormatSchedule describes when a post fires.
func FormatSchedule(p model.Post) string {
	if p.Recurring && p.Day != nil {
		return fmt.Sprintf("every %s at %s", *p.Day, FormatClock(p.Hour, p.Minute))
	}
	return "at " + FormatClock(p.Hour, p.Minute)
}

// FormatPostList formats the scheduled posts of a chat, one line per post.
func FormatPostList(posts []model.Post) string {
	if len(posts) == 0 {
		return "📭 No posts scheduled."
	}
	var b strings.Builder
	b.WriteString("📆 Scheduled posts:")
	for i, p := range posts {
		marker := markerOnce
		if p.Recurring {
			marker = markerRecurring
		}
		fmt.Fprintf(&b, "\n%d. %s ", i+1, marker)
		if p.Recurring && p.Day != nil {
			fmt.Fprintf(&b, "%s ", *p.Day)
		}
		b.WriteString(FormatClock(p.Hour, p.Minute))
	}
	return b.String()
}
