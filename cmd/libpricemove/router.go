package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/service"
	"github.com/dyike/pricemove/pkg/app"
)

type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

type tickerParams struct {
	Ticker string `json:"ticker"`
	Force  bool   `json:"force"`
}

type jobParams struct {
	WorkflowID string `json:"workflow_id"`
}

type catalogParams struct {
	Tickers []string `json:"tickers"`
}

var errBadParams = errors.New("invalid params")

// callTimeout bounds synchronous store lookups made on behalf of the host.
const callTimeout = 10 * time.Second

func Dispatch(method string, paramsJson string) string {
	return dispatch(currentRuntime(), method, paramsJson)
}

func dispatch(rt *app.Runtime, method string, paramsJson string) string {
	if method == "system.info" {
		return jsonResp(200, "Ok", service.GetSystemInfo())
	}
	if rt == nil || rt.Engine() == nil {
		return jsonResp(503, "sdk not initialized", nil)
	}
	svc := rt.Engine().Service

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	var result any
	var err error

	switch method {
	case "analysis.start":
		var p tickerParams
		if err = decode(paramsJson, &p); err == nil {
			result, err = svc.StartAnalysis(ctx, p.Ticker, p.Force)
		}
	case "analysis.status":
		var p jobParams
		if err = decode(paramsJson, &p); err == nil {
			result, err = svc.GetJobStatus(p.WorkflowID)
		}
	case "analysis.cached":
		var p tickerParams
		if err = decode(paramsJson, &p); err == nil {
			// a nil record is a valid answer
			result, err = svc.GetCachedOrNull(ctx, p.Ticker)
		}
	case "analysis.cancel":
		var p jobParams
		if err = decode(paramsJson, &p); err == nil {
			err = svc.CancelJob(p.WorkflowID)
			result = map[string]string{"workflow_id": p.WorkflowID}
		}
	case "catalog.add":
		var p catalogParams
		if err = decode(paramsJson, &p); err == nil {
			result, err = svc.AddTickers(ctx, p.Tickers...)
		}
	case "catalog.list":
		result, err = svc.ListTickers(ctx)
	default:
		return jsonResp(404, "Method not found", nil)
	}
	if err != nil {
		return jsonResp(errorCode(err), err.Error(), nil)
	}
	return jsonResp(200, "Ok", result)
}

func decode(paramsJson string, v any) error {
	if paramsJson == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(paramsJson), v); err != nil {
		return fmt.Errorf("%w: %v", errBadParams, err)
	}
	return nil
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, models.ErrTickerNotFound), errors.Is(err, models.ErrJobNotFound):
		return 404
	case errors.Is(err, models.ErrInvalidTicker), errors.Is(err, errBadParams):
		return 400
	case errors.Is(err, models.ErrJobTerminal):
		return 409
	default:
		return 500
	}
}

func jsonResp(code int, msg string, data any) string {
	resp := Response{Code: code, Msg: msg, Data: data}
	b, _ := json.Marshal(resp)
	return string(b)
}
