package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/mmk-task-service/internal/domain/model"
)

// ErrEmptyResponse is returned when a module answers 2xx without a body; the
// run then fails through the exception path.
var ErrEmptyResponse = errors.New("empty response body")

// missingSuccessMessage is reported when a response carries no success flag.
const missingSuccessMessage = "response carried no success flag"

// resultEvaluator maps a response body to a DispatchResult. Without expressions
// it reads the {"success","message","data"} envelope. An absent or null success
// flag counts as a failure.
type resultEvaluator struct {
	successExpr string
	messageExpr string
}

func newResultEvaluator(successExpr, messageExpr string) (resultEvaluator, error) {
	for _, expr := range []string{successExpr, messageExpr} {
		if expr == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return resultEvaluator{}, fmt.Errorf("invalid JMESPath expression %q: %w", expr, err)
		}
	}
	return resultEvaluator{successExpr: successExpr, messageExpr: messageExpr}, nil
}

func (e resultEvaluator) evaluate(raw []byte) (model.DispatchResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return model.DispatchResult{}, ErrEmptyResponse
	}

	if e.successExpr == "" && e.messageExpr == "" {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return model.DispatchResult{}, err
		}
		if env.Success == nil {
			return model.FailureResult(withDefault(env.Message, missingSuccessMessage)), nil
		}
		return model.DispatchResult{Successful: *env.Success, Message: env.Message}, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.DispatchResult{}, err
	}

	successful, err := e.successful(doc)
	if err != nil {
		return model.DispatchResult{}, err
	}
	message, err := e.message(doc)
	if err != nil {
		return model.DispatchResult{}, err
	}
	return model.DispatchResult{Successful: successful, Message: message}, nil
}

func (e resultEvaluator) successful(doc any) (bool, error) {
	if e.successExpr == "" {
		obj, _ := doc.(map[string]any)
		return truthy(obj["success"]), nil
	}
	v, err := jmespath.Search(e.successExpr, doc)
	if err != nil {
		return false, fmt.Errorf("evaluate success expression: %w", err)
	}
	return truthy(v), nil
}

func (e resultEvaluator) message(doc any) (string, error) {
	if e.messageExpr == "" {
		if obj, ok := doc.(map[string]any); ok {
			return stringify(obj["message"]), nil
		}
		return "", nil
	}
	v, err := jmespath.Search(e.messageExpr, doc)
	if err != nil {
		return "", fmt.Errorf("evaluate message expression: %w", err)
	}
	return stringify(v), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "ok", "success", "succeeded", "yes", "y", "1":
			return true
		default:
			return false
		}
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
