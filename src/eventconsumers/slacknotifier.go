package eventconsumers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	pubsub "github.com/jiaming2012/ward-market/src/eventpubsub"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
)

const slackTimeout = 60 * time.Second

type slackErrorDTO struct {
	Msg string `json:"error"`
}

// SlackNotifier posts the narrative text of world events to a chat webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func (c *SlackNotifier) handle(ev *models.WorldEvent) {
	log.Debugf("SlackNotifier.handle <- %v", ev.Type)

	if _, err := sendResponse(c.client, ev.Text, c.webhookURL, false); err != nil {
		log.WithField("type", ev.Type).Errorf("SlackNotifier: %v", err)
	}
}

func (c *SlackNotifier) Start(bus *pubsub.Bus) error {
	if err := bus.SubscribeAll(c.handle); err != nil {
		return err
	}

	log.Info("started SlackNotifier consumer")
	return nil
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: slackTimeout},
	}
}

func sendResponse(client *http.Client, msg string, url string, isEphemeral bool) ([]byte, error) {
	body := make(map[string]interface{})
	body["text"] = msg

	if isEphemeral {
		body["response_type"] = "ephemeral"
	} else {
		body["response_type"] = "in_channel"
	}

	return postJSON(client, url, body)
}

func postJSON(client *http.Client, url string, body map[string]interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("PostJSON (Marshal): %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("PostJSON (NewRequest): %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PostJSON (Do): %w", err)
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("PostJSON (ReadAll): %w", err)
	}

	if res.StatusCode >= 400 {
		var errDTO slackErrorDTO
		if jsonErr := json.Unmarshal(bodyBytes, &errDTO); jsonErr != nil || errDTO.Msg == "" {
			return nil, fmt.Errorf("PostJSON: status %d: %s", res.StatusCode, string(bodyBytes))
		}

		return nil, fmt.Errorf("PostJSON: status %d: %s", res.StatusCode, errDTO.Msg)
	}

	return bodyBytes, nil
}
