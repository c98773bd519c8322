package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/tidwall/gjson"
)

// Tool is a capability the assistant can invoke during a conversation.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Execute runs the tool with JSON arguments and returns the data
	// object for a successful result.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolRegistry holds available tools.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool.
func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Invoke runs a tool and wraps the outcome as a ToolResult. Unknown tools
// and execution errors become failed results.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args json.RawMessage) domain.ToolResult {
	t, ok := r.Get(name)
	if !ok {
		return domain.ToolResult{Error: "unknown tool: " + name}
	}
	data, err := t.Execute(ctx, args)
	if err != nil {
		return domain.ToolResult{Error: err.Error()}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return domain.ToolResult{Error: fmt.Sprintf("encoding %s result: %v", name, err)}
	}
	return domain.ToolResult{Success: true, Data: raw}
}

// NewCampaignTools registers every campaign tool backed by catalog.
func NewCampaignTools(catalog *Catalog) *ToolRegistry {
	r := NewToolRegistry()
	r.Register(listCampaignsTool{catalog})
	r.Register(createCampaignTool{catalog})
	r.Register(createFromProfileTool{catalog})
	r.Register(createFromWebsiteTool{catalog})
	r.Register(discoverCreatorsTool{catalog})
	r.Register(bulkOutreachTool{catalog})
	r.Register(campaignStatusTool{catalog})
	r.Register(creatorDetailsTool{catalog})
	return r
}

type listCampaignsTool struct{ c *Catalog }

func (listCampaignsTool) Name() string        { return domain.ToolListCampaigns }
func (listCampaignsTool) Description() string { return "List all campaigns." }

func (t listCampaignsTool) Execute(context.Context, json.RawMessage) (any, error) {
	all := t.c.Campaigns()
	return map[string]any{"campaigns": all, "total": len(all)}, nil
}

type createCampaignTool struct{ c *Catalog }

func (createCampaignTool) Name() string        { return domain.ToolCreateCampaign }
func (createCampaignTool) Description() string { return "Create a campaign from a name, niche and budget." }

func (t createCampaignTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	a := gjson.ParseBytes(args)
	name := strings.TrimSpace(a.Get("name").String())
	if name == "" {
		return nil, errors.New("campaign name is required")
	}
	budget := a.Get("budget").Int()
	if budget < 0 {
		return nil, errors.New("budget must not be negative")
	}
	cp := t.c.CreateCampaign(name, a.Get("niche").String(), a.Get("description").String(), budget)
	return map[string]any{"campaign": cp}, nil
}

type createFromProfileTool struct{ c *Catalog }

func (createFromProfileTool) Name() string { return domain.ToolCreateCampaignFromProfile }
func (createFromProfileTool) Description() string {
	return "Create a campaign modelled on a creator or brand social profile."
}

func (t createFromProfileTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	raw := gjson.GetBytes(args, "profileUrl").String()
	u, err := parseURL(raw)
	if err != nil {
		return nil, err
	}
	handle := strings.TrimPrefix(strings.Trim(u.Path, "/"), "@")
	if i := strings.IndexByte(handle, '/'); i >= 0 {
		handle = handle[:i]
	}
	if handle == "" {
		return nil, fmt.Errorf("no profile handle in %s", raw)
	}
	platform := strings.TrimSuffix(strings.TrimPrefix(u.Hostname(), "www."), ".com")
	cp := t.c.CreateCampaign(
		handle+" partnership",
		gjson.GetBytes(args, "niche").String(),
		fmt.Sprintf("Campaign modelled on @%s's %s audience.", handle, platform),
		gjson.GetBytes(args, "budget").Int(),
	)
	return map[string]any{"campaign": cp, "profileUrl": u.String()}, nil
}

type createFromWebsiteTool struct{ c *Catalog }

func (createFromWebsiteTool) Name() string { return domain.ToolCreateCampaignFromWebsite }
func (createFromWebsiteTool) Description() string {
	return "Create a campaign for the brand behind a website."
}

func (t createFromWebsiteTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	raw := gjson.GetBytes(args, "websiteUrl").String()
	u, err := parseURL(raw)
	if err != nil {
		return nil, err
	}
	brand := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.IndexByte(brand, '.'); i > 0 {
		brand = brand[:i]
	}
	cp := t.c.CreateCampaign(
		brand+" launch",
		gjson.GetBytes(args, "niche").String(),
		"Campaign for the brand at "+u.Hostname()+".",
		gjson.GetBytes(args, "budget").Int(),
	)
	return map[string]any{"campaign": cp, "websiteUrl": u.String()}, nil
}

type discoverCreatorsTool struct{ c *Catalog }

func (discoverCreatorsTool) Name() string        { return domain.ToolDiscoverCreators }
func (discoverCreatorsTool) Description() string { return "Search creators by niche, name or location." }

func (t discoverCreatorsTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	a := gjson.ParseBytes(args)
	query := a.Get("query").String()
	found, err := t.c.DiscoverCreators(query, int(a.Get("limit").Int()))
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []domain.Creator{}
	}
	return map[string]any{"query": query, "creators": found, "total": len(found)}, nil
}

type bulkOutreachTool struct{ c *Catalog }

func (bulkOutreachTool) Name() string { return domain.ToolBulkOutreach }
func (bulkOutreachTool) Description() string {
	return "Contact creators for a campaign. With preview set, only lists who would be contacted."
}

func (t bulkOutreachTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	a := gjson.ParseBytes(args)
	cp, err := t.c.Campaign(a.Get("campaignId").String())
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, v := range a.Get("creatorIds").Array() {
		ids = append(ids, v.String())
	}
	if len(ids) == 0 {
		return nil, errors.New("no creators selected for outreach")
	}

	if a.Get("preview").Bool() {
		return map[string]any{
			domain.IntermediateMarker: true,
			"campaignId":              cp.ID,
			"creatorIds":              ids,
		}, nil
	}

	res, err := t.c.Outreach(cp.ID, ids)
	if err != nil {
		return nil, err
	}
	recipients := res.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	return map[string]any{
		"campaignId":   res.Campaign.ID,
		"campaignName": res.Campaign.Name,
		"sent":         res.Sent,
		"failed":       res.Failed,
		"skipped":      res.Skipped,
		"recipients":   recipients,
	}, nil
}

type campaignStatusTool struct{ c *Catalog }

func (campaignStatusTool) Name() string        { return domain.ToolGetCampaignStatus }
func (campaignStatusTool) Description() string { return "Show a campaign and its outreach progress." }

func (t campaignStatusTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	cp, creators, err := t.c.CampaignCreators(gjson.GetBytes(args, "campaignId").String())
	if err != nil {
		return nil, err
	}
	contacted := 0
	for _, cr := range creators {
		if cr.Status == StatusContacted {
			contacted++
		}
	}
	return map[string]any{
		"campaign": cp,
		"stats": map[string]any{
			"creators":  len(creators),
			"contacted": contacted,
		},
	}, nil
}

type creatorDetailsTool struct{ c *Catalog }

func (creatorDetailsTool) Name() string        { return domain.ToolGetCampaignCreatorDetails }
func (creatorDetailsTool) Description() string { return "List the creators attached to a campaign." }

func (t creatorDetailsTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	cp, creators, err := t.c.CampaignCreators(gjson.GetBytes(args, "campaignId").String())
	if err != nil {
		return nil, err
	}
	return map[string]any{"campaignId": cp.ID, "creators": creators}, nil
}

func parseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid url %q", raw)
	}
	return u, nil
}
