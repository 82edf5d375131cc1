package orchestrator

const discussionPersona = "你现在是股票分析团队的主持人。"

const discussionPromptTpl = `现在进行团队讨论环节。各位分析师已经完成了对股票 %s（%s）的独立分析。

以下是各位分析师的核心观点：
%s
请你作为团队主持人，综合各位分析师的观点：
1. 总结各方观点的共识与分歧
2. 评估多空双方论据的说服力
3. 指出当前最关键的影响因素
4. 形成团队的综合倾向性意见

请给出结构化的讨论总结。`

const decisionPersona = "你是一名专业的投资决策专家，需要给出明确、可执行的投资建议。"

const decisionPromptTpl = `基于团队对股票 %s（%s）的完整分析，请给出最终投资决策。

当前价格：%s

团队讨论总结：
%s

关键技术参考位：
- MA20：%s
- 布林带上轨：%s
- 布林带下轨：%s

请严格按照以下JSON格式输出决策（不要输出其他内容）：
{
    "rating": "买入/增持/持有/减持/卖出",
    "target_price": "目标价位",
    "stop_loss": "止损价位",
    "position": "建议仓位（如：30%%）",
    "horizon": "投资期限（如：3-6个月）",
    "confidence": "信心指数（1-10）",
    "reason": "决策核心理由（100字以内）"
}`
