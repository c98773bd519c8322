package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/tidwall/gjson"
)

// SystemPrompt opens every conversation log.
const SystemPrompt = "You are a campaign assistant for influencer marketing. " +
	"Use the campaign tools to list and create campaigns, discover creators, run outreach " +
	"and report campaign status."

const helpReply = "I can list your campaigns, create a campaign (from a name, a social profile " +
	"or a website), find creators, run outreach and report campaign status. What would you like to do?"

// outreachBatch is how many creators one outreach request contacts.
const outreachBatch = 5

var (
	quotedRe = regexp.MustCompile(`["“]([^"”]+)["”]`)
	namedRe  = regexp.MustCompile(`(?i)\b(?:called|named)\s+([\w' -]+?)(?:\s+(?:for|with|in|on|about)\b|[.,!?]|$)`)
	urlRe    = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|io|co|net|org|shop|store|app)(?:/[^\s,]*)?`)
	budgetRe = regexp.MustCompile(`(?i)\$\s?([\d,]+(?:\.\d+)?)\s*(k)?`)
)

var socialHosts = []string{"instagram.com", "tiktok.com", "youtube.com", "x.com", "twitter.com", "twitch.tv"}

var niches = []string{
	"fitness", "wellness", "yoga", "beauty", "skincare", "fashion", "food", "vegan", "cooking",
	"travel", "outdoor", "tech", "gaming", "productivity", "parenting", "finance",
}

var stopWords = map[string]bool{
	"find": true, "discover": true, "search": true, "for": true, "me": true, "some": true,
	"creators": true, "creator": true, "influencers": true, "influencer": true, "who": true,
	"the": true, "a": true, "an": true, "in": true, "on": true, "with": true, "please": true,
	"show": true, "look": true, "looking": true, "get": true, "and": true, "of": true, "do": true,
	"posts": true, "post": true, "about": true, "can": true, "you": true, "i": true, "need": true,
}

// ExecutedCall is one tool invocation made while answering a message.
type ExecutedCall struct {
	ID        string
	Name      string
	Arguments string
	Result    domain.ToolResult
}

// Step is a batch of calls issued by one assistant message.
type Step []ExecutedCall

// Answer is the assistant's complete response to one user message.
type Answer struct {
	Steps []Step
	Reply string
}

// Assistant answers user messages by picking campaign tools from
// keywords. It is deterministic so that conversations are reproducible.
type Assistant struct {
	tools   *ToolRegistry
	catalog *Catalog
}

// NewAssistant creates an assistant over the given tools and catalog.
func NewAssistant(tools *ToolRegistry, catalog *Catalog) *Assistant {
	return &Assistant{tools: tools, catalog: catalog}
}

// Respond plans and executes the tool calls for text and composes a reply.
func (a *Assistant) Respond(ctx context.Context, text string) Answer {
	lower := strings.ToLower(text)

	switch {
	case hasAny(lower, "outreach", "reach out", "contact", "invite", "email creators"):
		return a.outreach(ctx, text)
	case hasAny(lower, "status", "progress", "how is", "how's"):
		return a.single(ctx, domain.ToolGetCampaignStatus, map[string]any{"campaignId": campaignRef(text)})
	case hasAny(lower, "details", "which creators", "creators in", "creators on"):
		return a.single(ctx, domain.ToolGetCampaignCreatorDetails, map[string]any{"campaignId": campaignRef(text)})
	case hasAny(lower, "create", "new campaign", "start a campaign", "launch", "set up"):
		return a.create(ctx, text)
	case hasAny(lower, "find", "discover", "search", "creators", "influencers"):
		return a.single(ctx, domain.ToolDiscoverCreators, map[string]any{"query": searchQuery(lower)})
	case hasAny(lower, "campaigns", "list"):
		return a.single(ctx, domain.ToolListCampaigns, map[string]any{})
	default:
		return Answer{Reply: helpReply}
	}
}

func (a *Assistant) single(ctx context.Context, name string, args map[string]any) Answer {
	call := a.call(ctx, name, args)
	return Answer{Steps: []Step{{call}}, Reply: replyFor(call)}
}

func (a *Assistant) call(ctx context.Context, name string, args map[string]any) ExecutedCall {
	raw, _ := json.Marshal(args)
	return ExecutedCall{
		ID:        "call_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12],
		Name:      name,
		Arguments: string(raw),
		Result:    a.tools.Invoke(ctx, name, raw),
	}
}

func (a *Assistant) create(ctx context.Context, text string) Answer {
	lower := strings.ToLower(text)
	args := map[string]any{}
	if n := detectNiche(lower); n != "" {
		args["niche"] = n
	}
	if b, ok := parseBudget(text); ok {
		args["budget"] = b
	}

	if u := urlRe.FindString(text); u != "" {
		name := domain.ToolCreateCampaignFromWebsite
		key := "websiteUrl"
		if isSocial(u) {
			name = domain.ToolCreateCampaignFromProfile
			key = "profileUrl"
		}
		args[key] = u
		return a.single(ctx, name, args)
	}

	args["name"] = campaignName(text, args["niche"])
	return a.single(ctx, domain.ToolCreateCampaign, args)
}

// outreach previews and then sends outreach for a campaign, picking the
// best matching creators for the campaign's niche.
func (a *Assistant) outreach(ctx context.Context, text string) Answer {
	ref := campaignRef(text)
	cp, err := a.catalog.Campaign(ref)
	if err != nil {
		return a.single(ctx, domain.ToolBulkOutreach, map[string]any{"campaignId": ref})
	}

	query := cp.Niche
	if query == "" {
		query = detectNiche(strings.ToLower(text))
	}
	found, err := a.catalog.DiscoverCreators(query, outreachBatch)
	if err != nil {
		return Answer{Reply: "I couldn't search for creators: " + err.Error()}
	}
	ids := make([]string, 0, len(found))
	for _, cr := range found {
		ids = append(ids, cr.ID)
	}

	preview := a.call(ctx, domain.ToolBulkOutreach, map[string]any{"campaignId": cp.ID, "creatorIds": ids, "preview": true})
	if !preview.Result.Success {
		return Answer{Steps: []Step{{preview}}, Reply: replyFor(preview)}
	}
	send := a.call(ctx, domain.ToolBulkOutreach, map[string]any{"campaignId": cp.ID, "creatorIds": ids})
	return Answer{Steps: []Step{{preview}, {send}}, Reply: replyFor(send)}
}

func replyFor(call ExecutedCall) string {
	if !call.Result.Success {
		return "I couldn't complete that: " + call.Result.Error
	}
	data := gjson.ParseBytes(call.Result.Data)

	switch call.Name {
	case domain.ToolListCampaigns:
		n := data.Get("total").Int()
		if n == 0 {
			return "You don't have any campaigns yet. Want me to create one?"
		}
		return fmt.Sprintf("You have %d %s.", n, plural(n, "campaign"))
	case domain.ToolCreateCampaign, domain.ToolCreateCampaignFromProfile, domain.ToolCreateCampaignFromWebsite:
		return fmt.Sprintf("I created the draft campaign **%s**. Ask me to find creators or start outreach.",
			data.Get("campaign.name").String())
	case domain.ToolDiscoverCreators:
		n := data.Get("total").Int()
		if n == 0 {
			return "I couldn't find any creators matching that."
		}
		top := data.Get("creators.0")
		return fmt.Sprintf("I found %d %s. The largest match is @%s with %s followers.",
			n, plural(n, "creator"), top.Get("handle").String(), humanize.Comma(top.Get("followers").Int()))
	case domain.ToolBulkOutreach:
		sent := data.Get("sent").Int()
		msg := fmt.Sprintf("I reached out to %d %s for **%s**.", sent, plural(sent, "creator"), data.Get("campaignName").String())
		if skipped := data.Get("skipped").Int(); skipped > 0 {
			msg += fmt.Sprintf(" %d had already been contacted.", skipped)
		}
		return msg
	case domain.ToolGetCampaignStatus:
		return fmt.Sprintf("**%s** is %s with %d creators contacted.",
			data.Get("campaign.name").String(), data.Get("campaign.status").String(), data.Get("stats.contacted").Int())
	case domain.ToolGetCampaignCreatorDetails:
		n := len(data.Get("creators").Array())
		if n == 0 {
			return "No creators have been contacted for this campaign yet."
		}
		return fmt.Sprintf("%d %s attached to this campaign.", n, plural(int64(n), "creator is", "creators are"))
	default:
		return "Done."
	}
}

func plural(n int64, forms ...string) string {
	one, many := forms[0], forms[0]+"s"
	if len(forms) > 1 {
		many = forms[1]
	}
	if n == 1 {
		return one
	}
	return many
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isSocial(u string) bool {
	lower := strings.ToLower(u)
	for _, h := range socialHosts {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func detectNiche(lower string) string {
	for _, n := range niches {
		if strings.Contains(lower, n) {
			return n
		}
	}
	return ""
}

// campaignRef picks the campaign a message refers to: a quoted name, a
// cmp_ id, or "" for the most recent campaign.
func campaignRef(text string) string {
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, f := range strings.Fields(text) {
		f = strings.Trim(f, ".,!?()")
		if strings.HasPrefix(f, "cmp_") {
			return f
		}
	}
	return ""
}

func campaignName(text string, niche any) string {
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := namedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if n, ok := niche.(string); ok && n != "" {
		return strings.ToUpper(n[:1]) + n[1:] + " campaign"
	}
	return "New campaign"
}

func parseBudget(text string) (int64, bool) {
	m := budgetRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		v *= 1000
	}
	return int64(v), true
}

func searchQuery(lower string) string {
	words := searchWords(lower)
	kept := words[:0]
	for _, w := range words {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
