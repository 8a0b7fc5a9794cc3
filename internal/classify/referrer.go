package classify

import (
	"net/url"
	"strings"
)

// Source is the traffic source a referrer resolves to.
type Source string

const (
	SourceDirect   Source = "direct"
	SourceSearch   Source = "search"
	SourceSocial   Source = "social"
	SourceEmail    Source = "email"
	SourceAds      Source = "ads"
	SourceReferral Source = "referral"
	SourceUnknown  Source = "unknown"
)

// Referrer is the classified referrer of a click, including any UTM
// parameters extracted verbatim from the referrer query string.
type Referrer struct {
	URL         string `json:"url,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Source      Source `json:"source"`
	UTMSource   string `json:"utmSource,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	UTMTerm     string `json:"utmTerm,omitempty"`
	UTMContent  string `json:"utmContent,omitempty"`
}

// Curated hostname fragments. Matching is case-insensitive substring
// over the referrer host; first list that matches wins.
var (
	searchDomains = []string{
		"google.", "bing.com", "search.yahoo.", "duckduckgo.com",
		"yandex.", "baidu.com", "ecosia.org", "startpage.com",
		"search.brave.com", "qwant.com",
	}

	socialDomains = []string{
		"facebook.com", "fb.com", "instagram.com", "twitter.com",
		"x.com", "t.co", "linkedin.com", "lnkd.in", "reddit.com",
		"pinterest.", "tiktok.com", "youtube.com", "youtu.be",
		"threads.net", "mastodon.", "bsky.app", "snapchat.com",
	}

	mailDomains = []string{
		"mail.google.com", "outlook.live.com", "outlook.office",
		"mail.yahoo.com", "mail.proton.me", "mail.aol.com",
		"mail.zoho.com", "webmail.",
	}
)

// paid utm_medium values that force the ads source.
var paidMediums = map[string]bool{
	"cpc":        true,
	"ppc":        true,
	"paid":       true,
	"cpm":        true,
	"display":    true,
	"paidsearch": true,
}

// ClassifyReferrer classifies a raw Referer header. UTM parameters
// carried on the referrer override hostname heuristics when utm_medium
// signals email or paid traffic. An empty referrer is direct traffic;
// an unparseable one degrades to unknown rather than failing the click.
func ClassifyReferrer(rawReferrer string) Referrer {
	if rawReferrer == "" {
		return Referrer{Source: SourceDirect}
	}

	ref := Referrer{URL: rawReferrer, Source: SourceUnknown}

	u, err := url.Parse(rawReferrer)
	if err != nil || u.Host == "" {
		return ref
	}

	ref.Domain = strings.ToLower(u.Host)
	ref.Source = sourceForDomain(ref.Domain)

	query := u.Query()
	ref.UTMSource = query.Get("utm_source")
	ref.UTMMedium = query.Get("utm_medium")
	ref.UTMCampaign = query.Get("utm_campaign")
	ref.UTMTerm = query.Get("utm_term")
	ref.UTMContent = query.Get("utm_content")

	// UTM medium overrides the hostname heuristic.
	switch medium := strings.ToLower(ref.UTMMedium); {
	case medium == "email" || medium == "e-mail" || medium == "newsletter":
		ref.Source = SourceEmail
	case paidMediums[medium]:
		ref.Source = SourceAds
	case query.Get("gclid") != "":
		ref.Source = SourceAds
	}

	return ref
}

func sourceForDomain(domain string) Source {
	for _, d := range mailDomains {
		if strings.Contains(domain, d) {
			return SourceEmail
		}
	}

	for _, d := range searchDomains {
		if strings.Contains(domain, d) {
			return SourceSearch
		}
	}

	for _, d := range socialDomains {
		if strings.Contains(domain, d) {
			return SourceSocial
		}
	}

	return SourceReferral
}
