// Package toolview maps tool results to display variants.
package toolview

// View is one display variant for a tool turn. The set of variants is
// closed; every implementation lives in this package.
type View interface {
	view()
}

// Stat is a labelled value shown on a card.
type Stat struct {
	Label string
	Value string
}

// ErrorCard shows a failed tool invocation.
type ErrorCard struct {
	FunctionName string
	Message      string
}

// Hidden means the turn renders nothing.
type Hidden struct{}

// GenericSuccess is shown for tools without a bespoke card.
type GenericSuccess struct {
	FunctionName string
}

// CampaignSummary is the displayable part of a campaign. Empty fields are
// omitted by renderers.
type CampaignSummary struct {
	ID          string
	Name        string
	Status      string
	Budget      string
	Niche       string
	Description string
}

// CampaignList shows the result of list_campaigns.
type CampaignList struct {
	Campaigns []CampaignSummary
	Total     int
}

// Campaign sources for CampaignCreated.
const (
	SourceManual  = "manual"
	SourceProfile = "profile"
	SourceWebsite = "website"
)

// CampaignCreated shows a newly created campaign.
type CampaignCreated struct {
	Source    string
	Campaign  CampaignSummary
	SourceURL string // profile or website the campaign was derived from
}

// CreatorSummary is the displayable part of a creator.
type CreatorSummary struct {
	ID         string
	Handle     string
	Name       string
	Platform   string
	Niche      string
	Followers  string
	Engagement string
	Location   string
	Status     string // outreach status, creator details only
}

// CreatorResults shows the result of discover_creators.
type CreatorResults struct {
	Query    string
	Creators []CreatorSummary
	Total    int
}

// OutreachSummary shows the result of bulk_outreach.
type OutreachSummary struct {
	CampaignID   string
	CampaignName string
	Stats        []Stat
	Recipients   []string
}

// CampaignStatus shows the result of get_campaign_status.
type CampaignStatus struct {
	Campaign CampaignSummary
	Stats    []Stat
}

// CreatorDetails shows the result of get_campaign_creator_details.
type CreatorDetails struct {
	CampaignID string
	Creators   []CreatorSummary
}

func (ErrorCard) view()       {}
func (Hidden) view()          {}
func (GenericSuccess) view()  {}
func (CampaignList) view()    {}
func (CampaignCreated) view() {}
func (CreatorResults) view()  {}
func (OutreachSummary) view() {}
func (CampaignStatus) view()  {}
func (CreatorDetails) view()  {}
