package backend

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/soyeahso/creatorpilot/internal/domain"
)

// ErrCampaignNotFound is returned for unknown campaign ids or names.
var ErrCampaignNotFound = errors.New("campaign not found")

// Outreach statuses.
const (
	StatusContacted = "contacted"
	StatusSkipped   = "skipped"
)

// CreatorSearcher finds creators. store.CreatorIndex satisfies it.
type CreatorSearcher interface {
	Upsert(cr domain.Creator) error
	Get(id string) (domain.Creator, error)
	Search(query string, limit int) ([]domain.Creator, error)
}

// Catalog holds campaigns and the outreach state of each campaign.
type Catalog struct {
	creators CreatorSearcher

	mu        sync.RWMutex
	campaigns map[string]domain.Campaign
	outreach  map[string][]outreachRecord // campaign id -> records, in send order
}

type outreachRecord struct {
	CreatorID string
	Status    string
	At        time.Time
}

// NewCatalog creates an empty catalog backed by creators.
func NewCatalog(creators CreatorSearcher) *Catalog {
	return &Catalog{
		creators:  creators,
		campaigns: make(map[string]domain.Campaign),
		outreach:  make(map[string][]outreachRecord),
	}
}

// Seed loads creators into the searcher.
func (c *Catalog) Seed(creators []domain.Creator) error {
	for _, cr := range creators {
		if err := c.creators.Upsert(cr); err != nil {
			return err
		}
	}
	return nil
}

// Campaigns returns all campaigns, newest first.
func (c *Catalog) Campaigns() []domain.Campaign {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Campaign, 0, len(c.campaigns))
	for _, cp := range c.campaigns {
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b domain.Campaign) int {
		if n := b.CreatedAt.Compare(a.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// CreateCampaign stores a new draft campaign.
func (c *Catalog) CreateCampaign(name, niche, description string, budget int64) domain.Campaign {
	cp := domain.Campaign{
		ID:          "cmp_" + uuid.New().String()[:8],
		Name:        name,
		Status:      domain.CampaignDraft,
		Budget:      budget,
		Niche:       niche,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	c.mu.Lock()
	c.campaigns[cp.ID] = cp
	c.mu.Unlock()
	return cp
}

// Campaign finds a campaign by id or, failing that, by case-insensitive
// name. An empty ref selects the most recent campaign.
func (c *Catalog) Campaign(ref string) (domain.Campaign, error) {
	c.mu.RLock()
	if cp, ok := c.campaigns[ref]; ok {
		c.mu.RUnlock()
		return cp, nil
	}
	c.mu.RUnlock()

	all := c.Campaigns()
	if len(all) == 0 {
		return domain.Campaign{}, ErrCampaignNotFound
	}
	if ref == "" {
		return all[0], nil
	}
	for _, cp := range all {
		if strings.EqualFold(cp.Name, ref) {
			return cp, nil
		}
	}
	return domain.Campaign{}, fmt.Errorf("%q: %w", ref, ErrCampaignNotFound)
}

// DiscoverCreators searches for creators matching query.
func (c *Catalog) DiscoverCreators(query string, limit int) ([]domain.Creator, error) {
	return c.creators.Search(query, limit)
}

// OutreachResult summarises one bulk outreach run.
type OutreachResult struct {
	Campaign   domain.Campaign
	Sent       int
	Skipped    int
	Failed     int
	Recipients []string // handles that were contacted
}

// Outreach contacts creators on behalf of a campaign. Creators already
// contacted for the campaign are skipped; unknown ids count as failed.
// A draft campaign becomes active.
func (c *Catalog) Outreach(campaignID string, creatorIDs []string) (OutreachResult, error) {
	cp, err := c.Campaign(campaignID)
	if err != nil {
		return OutreachResult{}, err
	}

	res := OutreachResult{Campaign: cp}
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	for _, r := range c.outreach[cp.ID] {
		seen[r.CreatorID] = true
	}
	for _, id := range creatorIDs {
		if seen[id] {
			res.Skipped++
			continue
		}
		cr, err := c.creators.Get(id)
		if err != nil {
			res.Failed++
			continue
		}
		seen[id] = true
		c.outreach[cp.ID] = append(c.outreach[cp.ID], outreachRecord{CreatorID: id, Status: StatusContacted, At: now})
		res.Sent++
		res.Recipients = append(res.Recipients, "@"+cr.Handle)
	}
	if res.Sent > 0 && cp.Status == domain.CampaignDraft {
		cp.Status = domain.CampaignActive
		c.campaigns[cp.ID] = cp
		res.Campaign = cp
	}
	return res, nil
}

// CampaignCreator is a creator attached to a campaign.
type CampaignCreator struct {
	domain.Creator
	Status string `json:"status"`
}

// CampaignCreators returns the creators contacted for a campaign.
func (c *Catalog) CampaignCreators(campaignID string) (domain.Campaign, []CampaignCreator, error) {
	cp, err := c.Campaign(campaignID)
	if err != nil {
		return domain.Campaign{}, nil, err
	}

	c.mu.RLock()
	records := slices.Clone(c.outreach[cp.ID])
	c.mu.RUnlock()

	out := make([]CampaignCreator, 0, len(records))
	for _, r := range records {
		cr, err := c.creators.Get(r.CreatorID)
		if err != nil {
			continue
		}
		out = append(out, CampaignCreator{Creator: cr, Status: r.Status})
	}
	return cp, out, nil
}

// MemoryCreators is an in-memory CreatorSearcher.
type MemoryCreators struct {
	mu   sync.RWMutex
	byID map[string]domain.Creator
}

// NewMemoryCreators creates an empty in-memory creator index.
func NewMemoryCreators() *MemoryCreators {
	return &MemoryCreators{byID: make(map[string]domain.Creator)}
}

func (m *MemoryCreators) Upsert(cr domain.Creator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[cr.ID] = cr
	return nil
}

func (m *MemoryCreators) Get(id string) (domain.Creator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cr, ok := m.byID[id]
	if !ok {
		return domain.Creator{}, fmt.Errorf("creator %s not found", id)
	}
	return cr, nil
}

// Search ranks creators by the number of query words found in their
// handle, name, niche or location, then by followers.
func (m *MemoryCreators) Search(query string, limit int) ([]domain.Creator, error) {
	if limit <= 0 {
		limit = 20
	}
	words := searchWords(query)

	type scored struct {
		cr    domain.Creator
		score int
	}
	m.mu.RLock()
	var hits []scored
	for _, cr := range m.byID {
		text := strings.ToLower(strings.Join([]string{cr.Handle, cr.Name, cr.Niche, cr.Location}, " "))
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if len(words) == 0 || score > 0 {
			hits = append(hits, scored{cr, score})
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(hits, func(a, b scored) int {
		if n := cmp.Compare(b.score, a.score); n != 0 {
			return n
		}
		if n := cmp.Compare(b.cr.Followers, a.cr.Followers); n != 0 {
			return n
		}
		return cmp.Compare(a.cr.ID, b.cr.ID)
	})

	out := make([]domain.Creator, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.cr)
	}
	return out, nil
}

func searchWords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return slices.DeleteFunc(words, func(w string) bool { return len(w) < 2 })
}

// SeedCreators is the creator roster the reference backend starts with.
func SeedCreators() []domain.Creator {
	return []domain.Creator{
		{ID: "cr_001", Handle: "fitwithjane", Name: "Jane Park", Platform: "instagram", Niche: "fitness", Followers: 1_250_000, EngagementRate: 4.2, Location: "Los Angeles", Email: "jane@example.com"},
		{ID: "cr_002", Handle: "liftlab", Name: "Marcus Hill", Platform: "youtube", Niche: "fitness", Followers: 480_000, EngagementRate: 6.1, Location: "Austin", Email: "marcus@example.com"},
		{ID: "cr_003", Handle: "yogaflowdaily", Name: "Priya Shah", Platform: "tiktok", Niche: "wellness yoga", Followers: 92_300, EngagementRate: 8.75, Location: "London"},
		{ID: "cr_004", Handle: "glowbyamara", Name: "Amara Okafor", Platform: "instagram", Niche: "beauty skincare", Followers: 2_400_000, EngagementRate: 3.4, Location: "New York", Email: "amara@example.com"},
		{ID: "cr_005", Handle: "skinscience", Name: "Dr. Lena Ortiz", Platform: "youtube", Niche: "beauty skincare", Followers: 735_000, EngagementRate: 5.05, Location: "Miami"},
		{ID: "cr_006", Handle: "plantplatebro", Name: "Theo Nguyen", Platform: "tiktok", Niche: "food vegan", Followers: 310_000, EngagementRate: 7.2, Location: "Portland"},
		{ID: "cr_007", Handle: "weeknightchef", Name: "Rosa Delgado", Platform: "instagram", Niche: "food cooking", Followers: 58_900, EngagementRate: 9.1, Location: "Chicago", Email: "rosa@example.com"},
		{ID: "cr_008", Handle: "trailtested", Name: "Sam Becker", Platform: "youtube", Niche: "outdoor travel", Followers: 1_020_000, EngagementRate: 4.8, Location: "Denver"},
		{ID: "cr_009", Handle: "nomadnotes", Name: "Ines Moreau", Platform: "instagram", Niche: "travel", Followers: 640_000, EngagementRate: 3.9, Location: "Lisbon"},
		{ID: "cr_010", Handle: "bytesizedtech", Name: "Kai Tanaka", Platform: "youtube", Niche: "tech gadgets", Followers: 3_100_000, EngagementRate: 2.7, Location: "San Francisco", Email: "kai@example.com"},
		{ID: "cr_011", Handle: "deskgoals", Name: "Mia Larsen", Platform: "tiktok", Niche: "tech productivity", Followers: 8_400, EngagementRate: 11.3, Location: "Copenhagen"},
		{ID: "cr_012", Handle: "thriftqueen", Name: "Nadia Brooks", Platform: "instagram", Niche: "fashion sustainable", Followers: 215_000, EngagementRate: 5.6, Location: "Atlanta"},
	}
}
