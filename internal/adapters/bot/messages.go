package bot

import (
	"fmt"
	"strings"

	"yt-dl-bot/internal/adapters/telegram"
	"yt-dl-bot/internal/domain"
)

const (
	textFetching       = "Fetching video info"
	textSearching      = "Searching YouTube"
	textUploading      = "Uploading"
	textCancelled      = "❌ Download cancelled."
	textExpired        = "⌛ This request has expired. Please send the link again."
	textNoResults      = "❌ No results found. Try a different search query."
	textInternalError  = "❌ An error occurred while processing your request. Please try again."
	textUnknownCommand = "🤔 Unknown command. Use /help to see what I can do."
	textSearchDisabled = "🔍 Search is not available right now. Please send a YouTube link instead."
)

var loadingFrames = []string{"⏳", "⌛"}

func loadingText(frame, label string) string {
	return frame + " " + label + "..."
}

func resolveFailedText() string {
	return strings.Join([]string{
		"❌ Error!",
		"",
		"Could not fetch video information. Please check:",
		"• The URL is correct",
		"• The video is publicly available",
		"• The video is not age-restricted",
	}, "\n")
}

func qualityCaption(title, botName string) string {
	return telegram.Caption(fmt.Sprintf("📹 %s\n\n✅ Video found! Choose your preferred quality:\n\n👨‍💻 %s", title, botName))
}

func invalidSelectionText(limit int) string {
	return fmt.Sprintf("❌ Invalid selection. Please reply with a number between 1 and %d", limit)
}

func searchResultsText(query string, results []domain.SearchResult, botName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Search Results for: %q\n\n", query)
	fmt.Fprintf(&b, "Found %d results. Reply with a number (1-%d) to select:\n\n", len(results), len(results))
	for i, r := range results {
		channel := r.Channel
		if channel == "" {
			channel = "Unknown"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   👤 %s\n", channel)
		fmt.Fprintf(&b, "   ⏱️ %s | 👁️ %s\n\n", orNA(r.Duration), orNA(r.Views))
	}
	b.WriteString("Reply with the number of your choice (e.g. \"3\")\n\n")
	b.WriteString("👨‍💻 " + botName)
	return telegram.Truncate(b.String(), telegram.MessageLimit)
}

func readyText(label, botName, autoDelete string) string {
	return strings.Join([]string{
		"✅ Ready to Download!",
		"",
		"📦 Format: " + label,
		"",
		"Click the button below to download:",
		"",
		"This message will auto-delete in " + autoDelete,
		"",
		"👨‍💻 " + botName,
	}, "\n")
}

func sentText(label, botName string) string {
	return fmt.Sprintf("✅ Sent!\n\n📦 Format: %s\n\n👨‍💻 %s", label, botName)
}

func thanksText(botName string) string {
	return "✅ Thank you for using " + botName + "!"
}

func welcomeText(botName string) string {
	return strings.Join([]string{
		"🎬 " + botName,
		"",
		"🌟 Welcome to the YouTube Downloader!",
		"",
		"📥 How to use:",
		"1️⃣ Send me a YouTube link OR a search query",
		"2️⃣ If searching, reply with the number of the video",
		"3️⃣ Choose your preferred quality",
		"4️⃣ Grab your file!",
		"",
		"✨ Features:",
		"🔍 YouTube search",
		"🎥 Multiple video qualities (144p - 1080p)",
		"🎵 Audio-only downloads",
		"🧹 Auto-cleanup of messages",
		"",
		"Send me a YouTube link or search query to get started! 🚀",
	}, "\n")
}

func helpText(autoDelete string) string {
	return strings.Join([]string{
		"📖 Help Menu",
		"",
		"Available commands:",
		"/start - Start the bot",
		"/help - Show this help message",
		"/about - About the bot",
		"/uptime - Check bot uptime",
		"/users - View user statistics",
		"/system - System information",
		"",
		"How to download:",
		"1️⃣ Send a YouTube URL or search query",
		"2️⃣ If searching, choose from the results by number",
		"3️⃣ Select your preferred quality",
		"",
		"Supported formats:",
		"🎵 Audio",
		"📹 Video: 144p, 240p, 360p, 480p, 720p, 1080p",
		"",
		"⚠️ Note: messages auto-delete after " + autoDelete + "!",
	}, "\n")
}

func aboutText(botName, username string) string {
	lines := []string{
		"ℹ️ " + botName,
		"",
		"Downloads audio and video from YouTube by link or search query.",
	}
	if username != "" {
		lines = append(lines, "", "🤖 @"+username)
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// formatLabel подписывает выбранный формат: "Audio (MP3)" или "Video (720p)".
func formatLabel(cb domain.Callback) string {
	if cb.Action == domain.ActionAudio {
		return "Audio (MP3)"
	}
	return fmt.Sprintf("Video (%s)", cb.Quality.Label())
}
