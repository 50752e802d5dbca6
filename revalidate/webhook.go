package revalidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"caballos/config"
	"caballos/logging"
)

var httpClient = http.Client{Timeout: 10 * time.Second}

// Notification is POSTed to REVALIDATE_WEBHOOK, e.g. a CDN purge endpoint
type Notification struct {
	Paths []string `json:"paths"`
	At    int64    `json:"at"`
}

func (notification *Notification) Send() error {
	buf := bytes.Buffer{}
	if err := json.NewEncoder(&buf).Encode(*notification); err != nil {
		return err
	}
	resp, err := httpClient.Post(config.REVALIDATE_WEBHOOK, "application/json", &buf)
	if err != nil {
		logging.L.Warnw("revalidate webhook failed", "error", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		buf.Reset()
		io.Copy(&buf, resp.Body)
		logging.L.Warnw("revalidate webhook refused", "status", resp.StatusCode, "body", buf.String())
		return fmt.Errorf("status: %d", resp.StatusCode)
	}
	return nil
}
