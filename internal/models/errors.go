package models

import "errors"

var (
	ErrTickerNotFound = errors.New("ticker not found")
	ErrInvalidTicker  = errors.New("invalid ticker")
	ErrJobNotFound    = errors.New("job not found")
	ErrJobTerminal    = errors.New("job already finished")
	ErrOracleResponse = errors.New("malformed oracle response")
	ErrNoPriceData    = errors.New("no price data")
)
