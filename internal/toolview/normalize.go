package toolview

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/tidwall/gjson"
)

// FallbackErrorMessage is shown when a failed result carries no message.
const FallbackErrorMessage = "Unknown error"

// Normalize maps a tool result to exactly one View. It never panics: any
// missing or mistyped field is left out of the returned view.
func Normalize(functionName string, result domain.ToolResult) View {
	if !result.Success {
		msg := result.Error
		if strings.TrimSpace(msg) == "" {
			msg = FallbackErrorMessage
		}
		return ErrorCard{FunctionName: functionName, Message: msg}
	}

	data := parseData(result.Data)
	if data.IsObject() && truthy(data.Get(domain.IntermediateMarker)) {
		return Hidden{}
	}

	switch functionName {
	case domain.ToolListCampaigns:
		return campaignList(data)
	case domain.ToolCreateCampaign:
		return campaignCreated(data, SourceManual, "")
	case domain.ToolCreateCampaignFromProfile:
		return campaignCreated(data, SourceProfile, "profileUrl")
	case domain.ToolCreateCampaignFromWebsite:
		return campaignCreated(data, SourceWebsite, "websiteUrl")
	case domain.ToolDiscoverCreators:
		return creatorResults(data)
	case domain.ToolBulkOutreach:
		return outreachSummary(data)
	case domain.ToolGetCampaignStatus:
		return campaignStatus(data)
	case domain.ToolGetCampaignCreatorDetails:
		return creatorDetails(data)
	default:
		return GenericSuccess{FunctionName: functionName}
	}
}

func parseData(raw []byte) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

// truthy follows JSON-script truthiness: false, null, 0 and "" are false.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		return true
	default:
		return false
	}
}

// object returns data[key] when it is an object, else data itself.
func object(data gjson.Result, key string) gjson.Result {
	if v := data.Get(key); v.IsObject() {
		return v
	}
	return data
}

func str(r gjson.Result, path string) string {
	v := r.Get(path)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}

func number(r gjson.Result, path string) (float64, bool) {
	v := r.Get(path)
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		if p := gjson.Parse(strings.TrimSpace(v.Str)); p.Type == gjson.Number {
			return p.Num, true
		}
	}
	return 0, false
}

func formatted(r gjson.Result, path string, f func(float64) string) string {
	if n, ok := number(r, path); ok {
		return f(n)
	}
	return ""
}

func total(data gjson.Result, items int) int {
	if n, ok := number(data, "total"); ok && n >= 0 {
		return int(n)
	}
	return items
}

func campaignSummary(c gjson.Result) CampaignSummary {
	return CampaignSummary{
		ID:          str(c, "id"),
		Name:        str(c, "name"),
		Status:      str(c, "status"),
		Budget:      formatted(c, "budget", FormatBudget),
		Niche:       str(c, "niche"),
		Description: str(c, "description"),
	}
}

func creatorSummary(c gjson.Result) CreatorSummary {
	handle := str(c, "handle")
	if handle == "" {
		handle = str(c, "username")
	}
	return CreatorSummary{
		ID:         str(c, "id"),
		Handle:     handle,
		Name:       str(c, "name"),
		Platform:   str(c, "platform"),
		Niche:      str(c, "niche"),
		Followers:  formatted(c, "followers", FormatFollowers),
		Engagement: formatted(c, "engagementRate", FormatEngagement),
		Location:   str(c, "location"),
		Status:     str(c, "status"),
	}
}

func objects(arr gjson.Result) []gjson.Result {
	if !arr.IsArray() {
		return nil
	}
	var out []gjson.Result
	for _, v := range arr.Array() {
		if v.IsObject() {
			out = append(out, v)
		}
	}
	return out
}

func campaignList(data gjson.Result) View {
	var list CampaignList
	for _, c := range objects(data.Get("campaigns")) {
		list.Campaigns = append(list.Campaigns, campaignSummary(c))
	}
	list.Total = total(data, len(list.Campaigns))
	return list
}

func campaignCreated(data gjson.Result, source, urlField string) View {
	v := CampaignCreated{
		Source:   source,
		Campaign: campaignSummary(object(data, "campaign")),
	}
	if urlField != "" {
		v.SourceURL = str(data, urlField)
	}
	return v
}

func creatorResults(data gjson.Result) View {
	res := CreatorResults{Query: str(data, "query")}
	for _, c := range objects(data.Get("creators")) {
		res.Creators = append(res.Creators, creatorSummary(c))
	}
	res.Total = total(data, len(res.Creators))
	return res
}

var outreachCounts = []struct{ key, label string }{
	{"sent", "Sent"},
	{"failed", "Failed"},
	{"skipped", "Skipped"},
}

func outreachSummary(data gjson.Result) View {
	v := OutreachSummary{
		CampaignID:   str(data, "campaignId"),
		CampaignName: str(data, "campaignName"),
	}
	for _, c := range outreachCounts {
		if n, ok := number(data, c.key); ok {
			v.Stats = append(v.Stats, Stat{Label: c.label, Value: humanize.Comma(int64(n))})
		}
	}
	if recipients := data.Get("recipients"); recipients.IsArray() {
		for _, r := range recipients.Array() {
			if r.Type == gjson.String && r.Str != "" {
				v.Recipients = append(v.Recipients, r.Str)
			}
		}
	}
	return v
}

func campaignStatus(data gjson.Result) View {
	v := CampaignStatus{Campaign: campaignSummary(object(data, "campaign"))}
	stats := data.Get("stats")
	if stats.IsObject() {
		stats.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.Number || value.Type == gjson.String {
				v.Stats = append(v.Stats, Stat{Label: label(key.String()), Value: value.String()})
			}
			return true
		})
	}
	return v
}

func creatorDetails(data gjson.Result) View {
	v := CreatorDetails{CampaignID: str(data, "campaignId")}
	if single := data.Get("creator"); single.IsObject() {
		v.Creators = append(v.Creators, creatorSummary(single))
	}
	for _, c := range objects(data.Get("creators")) {
		v.Creators = append(v.Creators, creatorSummary(c))
	}
	return v
}

// label turns a camelCase or snake_case key into a title-cased label.
func label(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteByte(' ')
			continue
		case i == 0:
			b.WriteString(strings.ToUpper(string(r)))
			continue
		case r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
