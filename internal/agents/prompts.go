package agents

// Prompt templates and personas for the six analyst roles. Placeholders are
// filled with "N/A" when the underlying data is missing; the model is
// expected to note the gap instead of failing.

const technicalPersona = "你是一名经验丰富的股票技术分析师，具有深厚的技术分析功底。"

const technicalPromptTpl = `请对股票 %s（%s）进行技术面分析。

【基本行情】
- 当前价格: %s
- 涨跌幅: %s%%

【技术指标】
- MA5: %s | MA10: %s | MA20: %s | MA60: %s
- RSI(14): %s
- MACD: %s | MACD信号线: %s
- 布林带上轨: %s | 布林带下轨: %s
- KDJ: K=%s D=%s
- 量比: %s

请从以下角度给出分析：
1. 当前趋势判断（多头/空头/震荡）
2. 关键支撑位与阻力位
3. 技术指标的背离或共振信号
4. 短线与中线的操作建议

注意：若某项指标为 N/A，说明该数据暂缺，请在分析中注明并基于其余数据判断。`

const fundamentalPersona = "你是一名资深的基本面分析师，擅长通过财务数据挖掘公司价值。"

const fundamentalPromptTpl = `请对股票 %s（%s）进行基本面分析。

【公司概况】
- 行业: %s | 板块: %s
- 市盈率: %s | 市净率: %s
- 总市值: %s | 流通市值: %s

%s
%s
请从以下角度给出分析：
1. 估值水平（与行业均值对比）
2. 盈利能力与成长性
3. 财务健康度
4. 长期投资价值判断`

const fundFlowPersona = "你是一名资深的资金面分析师，擅长从资金流向数据中洞察主力行为和市场趋势。"

const fundFlowPromptTpl = `请对股票 %s（%s）进行资金面分析。

【成交特征】
- 换手率: %s%%
- 量比: %s

%s
请从以下角度给出分析：
1. 主力资金的进出方向与力度
2. 大单/超大单行为解读
3. 资金面对短期股价的影响
4. 流动性风险提示`

const riskPersona = "你是一名资深的风险管理专家，具有20年以上的风险识别和控制经验，擅长全面评估各类投资风险。"

const riskPromptTpl = `请对股票 %s（%s）进行全面的风险评估。

【风险参考指标】
- 当前价格: %s
- Beta: %s
- 52周最高: %s | 52周最低: %s
- RSI(14): %s
%s
请从以下角度给出分析：
1. 市场风险与个股特有风险
2. 风险量化（波动率、回撤）
3. 仓位与止损建议
4. 资产配置角度的持仓建议`

const sentimentPersona = "你是一名专业的市场情绪分析师，擅长解读市场心理和投资者行为，善于利用ARBR等情绪指标进行分析。"

const sentimentPromptTpl = `请对股票 %s（%s）进行市场情绪分析。

【公司背景】
- 板块: %s | 行业: %s
%s
请从以下角度给出分析：
1. ARBR情绪指标解读（AR人气、BR意愿）
2. 当前市场情绪所处阶段（恐慌/低迷/正常/亢奋）
3. 情绪面对短期走势的影响
4. 逆向投资机会提示`

const newsPersona = "你是一名专业的新闻分析师，擅长解读新闻事件、舆情分析，评估新闻对股价的影响。"

const newsPromptTpl = `请对股票 %s（%s）进行新闻舆情分析。

【公司背景】
- 板块: %s | 行业: %s
%s
请从以下角度给出分析：
1. 近期新闻事件的重要性排序
2. 舆情倾向（正面/中性/负面）
3. 新闻对股价的潜在影响与持续时间
4. 需要持续跟踪的风险事件`

