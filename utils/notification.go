package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const expoPushEndpoint = "https://exp.host/--/api/v2/push/send"

// SendNotification pushes a single message to an Expo push token.
func SendNotification(token, title, body string, data map[string]string) error {
	payload := map[string]interface{}{
		"to":    token,
		"title": title,
		"body":  body,
		"sound": "default",
		"data":  data,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	res, err := http.Post(expoPushEndpoint, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		resBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("expo push failed with status %d: %s", res.StatusCode, string(resBody))
	}
	return nil
}
