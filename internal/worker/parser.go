package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
)

// JSONTriggerParser implements TriggerParser for JSON trigger messages
type JSONTriggerParser struct{}

// NewJSONTriggerParser creates a new JSON trigger parser
func NewJSONTriggerParser() *JSONTriggerParser {
	return &JSONTriggerParser{}
}

// Parse parses a JSON message body into a trigger
func (p *JSONTriggerParser) Parse(body []byte) (*dto.ScrapeTrigger, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		return nil, fmt.Errorf("message body is not a JSON object")
	}

	var trigger dto.ScrapeTrigger
	if err := json.Unmarshal(body, &trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	names := trigger.ScraperNames[:0]
	for _, n := range trigger.ScraperNames {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("scraperNames must not contain empty names")
		}
		names = append(names, n)
	}
	trigger.ScraperNames = names

	return &trigger, nil
}
