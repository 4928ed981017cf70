package cli

import (
	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/pricemove/internal/dataflows"
)

func validateTicker(val interface{}) error {
	str, _ := val.(string)
	return dataflows.ValidateSymbol(str)
}

// PromptForTicker asks for a ticker symbol and returns it normalized.
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Ticker symbol (e.g. AAPL, TSLA):",
		Help:    "Letters, digits and . ^ = - only, at most 10 characters",
	}
	if err := survey.AskOne(prompt, &ticker, survey.WithValidator(validateTicker)); err != nil {
		return "", err
	}
	return dataflows.NormalizeSymbol(ticker), nil
}

func PromptForJobID(recent []string) (string, error) {
	var id string
	if len(recent) > 0 {
		err := survey.AskOne(&survey.Select{
			Message: "Workflow:",
			Options: recent,
		}, &id)
		return id, err
	}
	err := survey.AskOne(&survey.Input{Message: "Workflow id:"}, &id, survey.WithValidator(survey.Required))
	return id, err
}

const (
	actionAnalyze = "Analyze a ticker"
	actionForce   = "Re-run analysis (ignore cache)"
	actionStatus  = "Check a workflow"
	actionCached  = "Show cached analysis"
	actionCatalog = "List catalog"
	actionQuit    = "Quit"
)

func PromptForAction() (string, error) {
	var action string
	err := survey.AskOne(&survey.Select{
		Message: "What next?",
		Options: []string{actionAnalyze, actionForce, actionStatus, actionCached, actionCatalog, actionQuit},
		Default: actionAnalyze,
	}, &action)
	return action, err
}

func ConfirmWait() (bool, error) {
	wait := true
	err := survey.AskOne(&survey.Confirm{Message: "Wait for the result?", Default: true}, &wait)
	return wait, err
}
