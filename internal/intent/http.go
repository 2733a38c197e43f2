package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/courierhq/dispatch/pkg/api"
)

// HTTPClassifier calls an external intent-extraction service. The service
// response is reduced to the closed intent enum; unknown or malformed
// responses degrade to general_info rather than failing the run
type HTTPClassifier struct {
	httpClient *http.Client
	endpoint   string
}

var _ Classifier = (*HTTPClassifier)(nil)

// NewHTTPClassifier creates a classifier client for the given endpoint
func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

func (c *HTTPClassifier) Classify(
	ctx context.Context, prompt string,
) (*api.Classification, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"intent classifier returned HTTP %d", resp.StatusCode,
		)
	}

	intent := api.Intent(gjson.GetBytes(data, "intent").String()).Normalize()
	res := &api.Classification{
		Intent: intent,
		Params: api.IntentParams{
			Origin: gjson.GetBytes(
				data, "extract_params.origin",
			).String(),
			Destination: gjson.GetBytes(
				data, "extract_params.destination",
			).String(),
			WeightKg: gjson.GetBytes(
				data, "extract_params.weight_kg",
			).Float(),
		},
	}

	slog.Debug("Intent classified",
		slog.String("intent", string(intent)))
	return res, nil
}
