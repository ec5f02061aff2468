package risk

import "errors"

var (
	ErrLimitBelowMarket = errors.New("stop-limit buy limit below market price")
	ErrNoAccount        = errors.New("order owner has no account")
	ErrNoPrice          = errors.New("order stock has no price")
	ErrSingleExceed     = errors.New("single order quantity exceed")
	ErrDailyExceed      = errors.New("daily quantity exceed")
	ErrRateLimited      = errors.New("order rate limit exceeded")
)
