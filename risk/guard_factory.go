package risk

// BuildGuards 组装常用的风控组合：先查资金持仓，再查限额。
// limits 为 nil 时只做资金持仓检查。
func BuildGuards(limits *LimitChecker, extra ...Guard) MultiGuard {
	guards := []Guard{FundsGuard{}}
	guards = append(guards, extra...)
	if limits != nil {
		guards = append(guards, limits)
	}
	return MultiGuard{Guards: guards}
}
