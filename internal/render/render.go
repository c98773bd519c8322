// Package render turns transcript turns and tool views into terminal text.
package render

import (
	"fmt"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"

	"github.com/soyeahso/creatorpilot/internal/chat"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/toolview"
)

const (
	defaultWidth = 100
	minWidth     = 40
	mdPadding    = 2
)

var (
	styleBold  = lipgloss.NewStyle().Bold(true)
	styleGray  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleGreen = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleCyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleRed   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	cardBorder  = lipgloss.Color("14")
	errorBorder = lipgloss.Color("9")
)

// Renderer formats turns for a terminal of a fixed width.
type Renderer struct {
	width    int
	markdown bool
}

// New returns a Renderer. A non-positive width selects the default.
func New(width int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	if width < minWidth {
		width = minWidth
	}
	return &Renderer{width: width, markdown: true}
}

// Plain returns a Renderer that prints assistant text without Markdown
// rendering.
func Plain(width int) *Renderer {
	r := New(width)
	r.markdown = false
	return r
}

// Transcript renders turns in order, separated by blank lines. Turns that
// render to nothing are skipped.
func (r *Renderer) Transcript(turns []domain.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		if s := r.Turn(t); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Turn renders a single turn.
func (r *Renderer) Turn(t domain.Turn) string {
	switch {
	case t.IsStructured():
		return r.View(toolview.Normalize(t.ToolCall.FunctionName, t.ToolCall.Result))
	case t.Role == domain.RoleUser:
		header := styleBold.Render(styleGreen.Render("You"))
		return header + "\n" + lipgloss.NewStyle().PaddingLeft(mdPadding).Render(t.Content)
	case t.Role == domain.RoleAssistant:
		header := styleBold.Render(styleCyan.Render("Assistant"))
		return header + "\n" + r.text(t.Content)
	default:
		// raw tool or system content
		header := styleGray.Render(string(t.Role))
		return header + "\n" + lipgloss.NewStyle().PaddingLeft(mdPadding).Render(styleGray.Render(t.Content))
	}
}

func (r *Renderer) text(content string) string {
	if !r.markdown {
		return lipgloss.NewStyle().PaddingLeft(mdPadding).Render(content)
	}
	out := markdown.Render(content, r.width-mdPadding, mdPadding)
	return strings.TrimRight(string(out), "\n")
}

// Notification renders a transient toast.
func (r *Renderer) Notification(n chat.Notification) string {
	style := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	label := "info"
	if n.Level == chat.LevelError {
		style = style.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
		label = "error"
	} else {
		style = style.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("14"))
	}
	return style.Render(label + ": " + n.Message)
}

// View renders a tool view. Hidden renders as "".
func (r *Renderer) View(v toolview.View) string {
	switch v := v.(type) {
	case toolview.Hidden:
		return ""
	case toolview.ErrorCard:
		return r.card(errorBorder, styleRed.Render("✗ "+v.FunctionName+" failed"), []string{v.Message})
	case toolview.GenericSuccess:
		return styleGreen.Render("✓ ") + styleGray.Render(v.FunctionName+" completed")
	case toolview.CampaignList:
		return r.campaignList(v)
	case toolview.CampaignCreated:
		return r.campaignCreated(v)
	case toolview.CreatorResults:
		return r.creatorResults(v)
	case toolview.OutreachSummary:
		return r.outreach(v)
	case toolview.CampaignStatus:
		return r.campaignStatus(v)
	case toolview.CreatorDetails:
		return r.creatorDetails(v)
	default:
		return ""
	}
}

func (r *Renderer) card(border lipgloss.Color, title string, lines []string) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(r.width - 4)

	body := title
	if len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	return style.Render(body)
}

func (r *Renderer) campaignList(v toolview.CampaignList) string {
	title := styleBold.Render(fmt.Sprintf("Campaigns (%d)", v.Total))
	if len(v.Campaigns) == 0 {
		return r.card(cardBorder, title, []string{styleGray.Render("No campaigns yet.")})
	}
	lines := make([]string, 0, len(v.Campaigns))
	for _, c := range v.Campaigns {
		lines = append(lines, "• "+campaignLine(c))
	}
	return r.card(cardBorder, title, lines)
}

func (r *Renderer) campaignCreated(v toolview.CampaignCreated) string {
	title := "Campaign created"
	switch v.Source {
	case toolview.SourceProfile:
		title = "Campaign created from profile"
	case toolview.SourceWebsite:
		title = "Campaign created from website"
	}
	lines := campaignFields(v.Campaign)
	if v.SourceURL != "" {
		lines = append(lines, field("Source", v.SourceURL))
	}
	return r.card(cardBorder, styleGreen.Render("✓ ")+styleBold.Render(title), lines)
}

func (r *Renderer) creatorResults(v toolview.CreatorResults) string {
	title := fmt.Sprintf("Found %d creators", v.Total)
	if v.Query != "" {
		title += " for " + fmt.Sprintf("%q", v.Query)
	}
	if len(v.Creators) == 0 {
		return r.card(cardBorder, styleBold.Render(title), []string{styleGray.Render("No matching creators.")})
	}
	lines := make([]string, 0, len(v.Creators))
	for _, c := range v.Creators {
		lines = append(lines, "• "+creatorLine(c))
	}
	return r.card(cardBorder, styleBold.Render(title), lines)
}

func (r *Renderer) outreach(v toolview.OutreachSummary) string {
	title := "Outreach sent"
	if v.CampaignName != "" {
		title += " for " + v.CampaignName
	}
	lines := stats(v.Stats)
	if len(v.Recipients) > 0 {
		lines = append(lines, field("Recipients", strings.Join(v.Recipients, ", ")))
	}
	return r.card(cardBorder, styleBold.Render(title), lines)
}

func (r *Renderer) campaignStatus(v toolview.CampaignStatus) string {
	name := v.Campaign.Name
	if name == "" {
		name = v.Campaign.ID
	}
	lines := campaignFields(v.Campaign)
	lines = append(lines, stats(v.Stats)...)
	return r.card(cardBorder, styleBold.Render("Status: "+name), lines)
}

func (r *Renderer) creatorDetails(v toolview.CreatorDetails) string {
	title := "Campaign creators"
	if v.CampaignID != "" {
		title += " (" + v.CampaignID + ")"
	}
	if len(v.Creators) == 0 {
		return r.card(cardBorder, styleBold.Render(title), []string{styleGray.Render("No creators in this campaign.")})
	}
	lines := make([]string, 0, len(v.Creators))
	for _, c := range v.Creators {
		line := "• " + creatorLine(c)
		if c.Status != "" {
			line += " " + styleCyan.Render("["+c.Status+"]")
		}
		lines = append(lines, line)
	}
	return r.card(cardBorder, styleBold.Render(title), lines)
}

func campaignLine(c toolview.CampaignSummary) string {
	parts := []string{styleBold.Render(c.Name)}
	if c.Status != "" {
		parts = append(parts, styleCyan.Render(c.Status))
	}
	if c.Budget != "" {
		parts = append(parts, c.Budget)
	}
	if c.Niche != "" {
		parts = append(parts, styleGray.Render(c.Niche))
	}
	return strings.Join(parts, " · ")
}

func campaignFields(c toolview.CampaignSummary) []string {
	var lines []string
	for _, f := range [][2]string{
		{"Name", c.Name},
		{"Status", c.Status},
		{"Budget", c.Budget},
		{"Niche", c.Niche},
		{"Description", c.Description},
	} {
		if f[1] != "" {
			lines = append(lines, field(f[0], f[1]))
		}
	}
	return lines
}

func creatorLine(c toolview.CreatorSummary) string {
	name := c.Handle
	if name == "" {
		name = c.Name
	} else if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	parts := []string{styleBold.Render(name)}
	if c.Platform != "" {
		parts = append(parts, c.Platform)
	}
	if c.Followers != "" {
		parts = append(parts, c.Followers+" followers")
	}
	if c.Engagement != "" {
		parts = append(parts, c.Engagement+" engagement")
	}
	if c.Location != "" {
		parts = append(parts, styleGray.Render(c.Location))
	}
	return strings.Join(parts, " · ")
}

func stats(s []toolview.Stat) []string {
	lines := make([]string, 0, len(s))
	for _, st := range s {
		lines = append(lines, field(st.Label, st.Value))
	}
	return lines
}

func field(label, value string) string {
	return styleGray.Render(label+":") + " " + value
}
