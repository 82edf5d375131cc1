// Package display renders analysis results for the terminal.
package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/SPYQWER1/aiagents-stock/internal/domain"
	"github.com/SPYQWER1/aiagents-stock/internal/storage/sqlite"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(80)

	reviewStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 2).
			Width(80)

	decisionStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(0, 2).
			Width(80)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)
)

// decisionFields is the display order of the structured decision keys.
var decisionFields = []struct {
	key   string
	label string
}{
	{"rating", "评级"},
	{"target_price", "目标价"},
	{"stop_loss", "止损价"},
	{"position", "建议仓位"},
	{"horizon", "投资期限"},
	{"confidence", "信心指数"},
	{"reason", "决策理由"},
}

// RenderAnalysis renders the full result of one analysis.
// requestedRoles, when non-empty, is used to flag degraded coverage.
func RenderAnalysis(a *domain.StockAnalysis, requestedRoles []domain.AgentRole) string {
	var sb strings.Builder

	header := fmt.Sprintf("📊 %s（%s）分析结果 | 状态: %s", a.Stock.Symbol, a.Stock.Name, a.Status())
	sb.WriteString(titleStyle.Render(header) + "\n\n")

	if a.Status() == domain.StatusFailed {
		sb.WriteString(errorStyle.Render("❌ 分析失败: "+a.FailReason()) + "\n")
		return sb.String()
	}

	reviews := a.Reviews()
	for _, role := range domain.CanonicalRoles {
		review, ok := reviews[role]
		if !ok {
			continue
		}
		body := fmt.Sprintf("【%s】\n关注: %s\n\n%s",
			review.AgentName,
			strings.Join(review.Content.FocusAreas, "、"),
			review.Content.Summary)
		sb.WriteString(reviewStyle.Render(body) + "\n")
	}

	if len(requestedRoles) > 0 && len(reviews) < len(requestedRoles) {
		missing := missingRoles(reviews, requestedRoles)
		sb.WriteString(warnStyle.Render(fmt.Sprintf("⚠️  %d/%d 位分析师完成分析，缺少: %s",
			len(reviews), len(requestedRoles), strings.Join(missing, "、"))) + "\n")
	}

	if a.TeamDiscussion() != "" {
		sb.WriteString(sectionStyle.Render("💬 团队讨论\n\n"+a.TeamDiscussion()) + "\n")
	}

	if decision := a.FinalDecision(); decision != nil {
		sb.WriteString(decisionStyle.Render("🎯 最终决策\n\n"+renderDecision(decision)) + "\n")
	}
	return sb.String()
}

// renderDecision renders the structured decision, or the raw text when the
// parser fell back to decision_text.
func renderDecision(decision map[string]any) string {
	if raw, ok := decision["decision_text"].(string); ok {
		return raw
	}

	var sb strings.Builder
	rendered := map[string]bool{}
	for _, field := range decisionFields {
		if v, ok := decision[field.key]; ok {
			fmt.Fprintf(&sb, "%s: %v\n", field.label, v)
			rendered[field.key] = true
		}
	}

	// unexpected keys still get shown, sorted for stable output
	var extras []string
	for key := range decision {
		if !rendered[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		fmt.Fprintf(&sb, "%s: %v\n", key, decision[key])
	}
	return strings.TrimRight(sb.String(), "\n")
}

func missingRoles(reviews map[domain.AgentRole]domain.AgentReview, requested []domain.AgentRole) []string {
	var missing []string
	for _, role := range requested {
		if _, ok := reviews[role]; !ok {
			missing = append(missing, string(role))
		}
	}
	return missing
}

// RenderHistory renders the persisted analysis listing.
func RenderHistory(entries []sqlite.HistoryEntry) string {
	if len(entries) == 0 {
		return "暂无历史分析记录\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("📜 历史分析记录") + "\n\n")
	for _, e := range entries {
		rating := e.Rating
		if rating == "" {
			rating = "-"
		}
		fmt.Fprintf(&sb, "%s  %s  %-10s %-10s 评级: %s  %s\n",
			e.CreatedAt, shortID(e.ID), e.Symbol, e.Name, rating, e.Status)
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func Error(err error) string {
	return errorStyle.Render("❌ " + err.Error())
}

func Success(message string) string {
	return successStyle.Render("✅ " + message)
}
