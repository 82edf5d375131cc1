package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/SPYQWER1/aiagents-stock/internal/dataflows"
	"github.com/SPYQWER1/aiagents-stock/internal/domain"
)

var symbolRe = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// analystOptions maps the selectable display names to role keys, in the
// team's canonical order.
var analystOptions = []struct {
	Label string
	Role  domain.AgentRole
}{
	{"技术分析师", domain.RoleTechnical},
	{"基本面分析师", domain.RoleFundamental},
	{"资金面分析师", domain.RoleFundFlow},
	{"风险管理师", domain.RoleRiskManagement},
	{"市场情绪分析师", domain.RoleMarketSentiment},
	{"新闻分析师", domain.RoleNewsAnalyst},
}

// promptForSymbol asks for a stock code or ticker.
func promptForSymbol() (string, error) {
	var symbol string
	prompt := &survey.Input{
		Message: "请输入股票代码 (如 600036, 0700.HK, AAPL):",
		Help:    "A股六位数字代码、港股代码(可带.HK后缀)或美股ticker",
	}

	err := survey.AskOne(prompt, &symbol, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if str == "" {
			return fmt.Errorf("股票代码不能为空")
		}
		if len(str) > 12 {
			return fmt.Errorf("股票代码过长 (最多12个字符)")
		}
		if !symbolRe.MatchString(str) {
			return fmt.Errorf("股票代码格式不正确 (仅限字母、数字、点和连字符)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return dataflows.NormalizeSymbol(symbol), nil
}

// promptForAnalysts asks which analysts join the run, defaulting to all.
func promptForAnalysts() ([]string, error) {
	options := make([]string, 0, len(analystOptions))
	for _, opt := range analystOptions {
		options = append(options, opt.Label)
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "请选择参与分析的分析师:",
		Options: options,
		Help:    "空格选择，回车确认，默认全选",
		Default: options,
	}

	err := survey.AskOne(prompt, &selected, survey.WithValidator(func(val interface{}) error {
		answers, ok := val.([]survey.OptionAnswer)
		if !ok {
			return fmt.Errorf("invalid selection type")
		}
		if len(answers) == 0 {
			return fmt.Errorf("至少选择一位分析师")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(selected))
	for _, label := range selected {
		for _, opt := range analystOptions {
			if opt.Label == label {
				keys = append(keys, string(opt.Role))
				break
			}
		}
	}
	return keys, nil
}
