package classify

import "strings"

// DeviceType categorizes the client device.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceBot     DeviceType = "bot"
	DeviceUnknown DeviceType = "unknown"
)

// BotType categorizes automated clients.
type BotType string

const (
	BotSearch  BotType = "search"
	BotSocial  BotType = "social"
	BotMonitor BotType = "monitor"
	BotScraper BotType = "scraper"
	BotGeneric BotType = "generic"
)

// Bot is the bot classification of a request. Decided once at
// ingestion and never revisited.
type Bot struct {
	IsBot bool    `json:"isBot"`
	Name  string  `json:"name,omitempty"`
	Type  BotType `json:"type,omitempty"`
}

// Device describes the client device, OS and browser parsed from a
// user-agent string.
type Device struct {
	Type           DeviceType `json:"type"`
	OS             string     `json:"os"`
	OSVersion      string     `json:"osVersion,omitempty"`
	Browser        string     `json:"browser"`
	BrowserVersion string     `json:"browserVersion,omitempty"`
	Bot            Bot        `json:"bot"`
}

const unknown = "unknown"

// botSignature is one row in the ordered bot signature table.
// Matching is case-insensitive substring; first match wins.
type botSignature struct {
	token string
	name  string
	typ   BotType
}

// Specific crawlers first, generic tokens last.
var botSignatures = []botSignature{
	{"googlebot", "Googlebot", BotSearch},
	{"bingbot", "Bingbot", BotSearch},
	{"yandexbot", "YandexBot", BotSearch},
	{"baiduspider", "Baiduspider", BotSearch},
	{"duckduckbot", "DuckDuckBot", BotSearch},
	{"applebot", "Applebot", BotSearch},
	{"facebookexternalhit", "Facebook Preview", BotSocial},
	{"twitterbot", "Twitterbot", BotSocial},
	{"linkedinbot", "LinkedInBot", BotSocial},
	{"slackbot", "Slackbot", BotSocial},
	{"telegrambot", "TelegramBot", BotSocial},
	{"discordbot", "Discordbot", BotSocial},
	{"whatsapp", "WhatsApp Preview", BotSocial},
	{"pinterestbot", "Pinterestbot", BotSocial},
	{"uptimerobot", "UptimeRobot", BotMonitor},
	{"pingdom", "Pingdom", BotMonitor},
	{"statuscake", "StatusCake", BotMonitor},
	{"ahrefsbot", "AhrefsBot", BotScraper},
	{"semrushbot", "SemrushBot", BotScraper},
	{"mj12bot", "MJ12bot", BotScraper},
	{"petalbot", "PetalBot", BotScraper},
	{"headlesschrome", "Headless Chrome", BotScraper},
	{"phantomjs", "PhantomJS", BotScraper},
	{"python-requests", "python-requests", BotScraper},
	{"go-http-client", "Go HTTP client", BotScraper},
	{"curl/", "curl", BotScraper},
	{"wget/", "Wget", BotScraper},
	{"crawler", "", BotGeneric},
	{"spider", "", BotGeneric},
	{"scraper", "", BotGeneric},
	{"bot", "", BotGeneric},
}

// ClassifyBot matches a user-agent against the ordered bot signature
// table. No match means not a bot.
func ClassifyBot(userAgent string) Bot {
	ua := strings.ToLower(userAgent)

	for _, sig := range botSignatures {
		if !strings.Contains(ua, sig.token) {
			continue
		}

		name := sig.name
		if name == "" {
			name = sig.token
		}

		return Bot{IsBot: true, Name: name, Type: sig.typ}
	}

	return Bot{}
}

// ClassifyUserAgent parses a user-agent string into device, OS and
// browser fields. Malformed or empty input degrades to unknown fields
// rather than failing.
func ClassifyUserAgent(userAgent string) Device {
	device := Device{
		Type:    DeviceDesktop,
		OS:      unknown,
		Browser: unknown,
		Bot:     ClassifyBot(userAgent),
	}

	if userAgent == "" {
		device.Type = DeviceUnknown

		return device
	}

	device.OS, device.OSVersion = parseOS(userAgent)
	device.Browser, device.BrowserVersion = parseBrowser(userAgent)
	device.Type = parseDeviceType(userAgent, device.Bot)

	return device
}

// osSignature maps a UA token to an OS name, with an optional version
// prefix the version is read after.
type osSignature struct {
	token         string
	name          string
	versionPrefix string
}

var osSignatures = []osSignature{
	{"windows nt", "Windows", "Windows NT "},
	{"android", "Android", "Android "},
	{"iphone os", "iOS", "iPhone OS "},
	{"cpu os", "iOS", "CPU OS "},
	{"mac os x", "macOS", "Mac OS X "},
	{"cros", "ChromeOS", ""},
	{"linux", "Linux", ""},
}

func parseOS(ua string) (name, version string) {
	lower := strings.ToLower(ua)

	for _, sig := range osSignatures {
		if !strings.Contains(lower, sig.token) {
			continue
		}

		if sig.versionPrefix != "" {
			version = readVersion(ua, sig.versionPrefix)
		}

		return sig.name, version
	}

	return unknown, ""
}

// browserSignature maps a UA token to a browser name. Order matters:
// Edge and Opera embed "Chrome", Chrome embeds "Safari".
type browserSignature struct {
	token string
	name  string
}

var browserSignatures = []browserSignature{
	{"Edg/", "Edge"},
	{"OPR/", "Opera"},
	{"SamsungBrowser/", "Samsung Internet"},
	{"Firefox/", "Firefox"},
	{"Chrome/", "Chrome"},
	{"CriOS/", "Chrome"},
	{"Safari/", "Safari"},
	{"MSIE ", "Internet Explorer"},
	{"Trident/", "Internet Explorer"},
}

func parseBrowser(ua string) (name, version string) {
	for _, sig := range browserSignatures {
		if !strings.Contains(ua, sig.token) {
			continue
		}

		if sig.name == "Safari" {
			// Safari reports its version in a separate token.
			return sig.name, readVersion(ua, "Version/")
		}

		return sig.name, readVersion(ua, sig.token)
	}

	return unknown, ""
}

func parseDeviceType(ua string, bot Bot) DeviceType {
	if bot.IsBot {
		return DeviceBot
	}

	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "ipad"),
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return DeviceTablet
	case strings.Contains(lower, "mobile"),
		strings.Contains(lower, "iphone"),
		strings.Contains(lower, "android"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// readVersion returns the version token following prefix, stopping at
// the first separator. Underscores become dots (Apple version style).
func readVersion(ua, prefix string) string {
	idx := strings.Index(ua, prefix)
	if idx == -1 {
		return ""
	}

	rest := ua[idx+len(prefix):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return r != '.' && r != '_' && (r < '0' || r > '9')
	})

	if end != -1 {
		rest = rest[:end]
	}

	return strings.ReplaceAll(rest, "_", ".")
}
