package domain

// Campaign tool names invoked by the assistant.
const (
	ToolListCampaigns             = "list_campaigns"
	ToolCreateCampaign            = "create_campaign"
	ToolCreateCampaignFromProfile = "create_campaign_from_profile"
	ToolCreateCampaignFromWebsite = "create_campaign_from_website"
	ToolDiscoverCreators          = "discover_creators"
	ToolBulkOutreach              = "bulk_outreach"
	ToolGetCampaignStatus         = "get_campaign_status"
	ToolGetCampaignCreatorDetails = "get_campaign_creator_details"
)

// IntermediateMarker flags tool data that is a non-terminal step and
// should not be displayed.
const IntermediateMarker = "_intermediate"

// UnknownFunction names a tool result whose invocation could not be found.
const UnknownFunction = "unknown"
