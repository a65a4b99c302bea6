// Package main signs in with a phone number and prints the session and feed
// events pushed over the WebSocket.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	phone := flag.String("phone", "", "Local phone number to sign in with")
	callingCode := flag.String("calling-code", "91", "Country calling code")
	token := flag.String("token", "", "Use an existing bearer token instead of signing in")
	flag.Parse()

	if *token == "" {
		if *phone == "" {
			log.Fatal("either -phone or -token is required")
		}
		t, err := signIn(*host, *callingCode, *phone)
		if err != nil {
			log.Fatalf("❌ Sign-in failed: %v", err)
		}
		*token = t
		log.Printf("✅ Signed in")
	}

	ticket, err := getTicket(*host, *token)
	if err != nil {
		log.Fatalf("❌ Ticket issuance failed: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws", RawQuery: "ticket=" + url.QueryEscape(ticket)}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("❌ Dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	log.Printf("🔌 Connected to %s", u.Host)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	resync := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				log.Printf("connection closed: %v", err)
				return
			}
			if printEnvelope(data) == "resync" {
				select {
				case resync <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-resync:
			if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"resync"}`)); err != nil {
				log.Printf("resync request failed: %v", err)
				return
			}
		case <-interrupt:
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}

func printEnvelope(data []byte) string {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("unreadable message: %s", data)
		return ""
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, env.Payload, "", "  "); err != nil {
		pretty.Write(env.Payload)
	}
	fmt.Printf("[%s] %s\n%s\n", time.Now().Format(time.TimeOnly), env.Type, pretty.String())
	return env.Type
}

func postJSON(rawURL, token string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, rawURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: status %d %s %s", rawURL, resp.StatusCode, apiErr.Code, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// signIn runs the OTP flow. The code is taken from the response when the
// server echoes it, otherwise it is read from stdin.
func signIn(host, callingCode, phone string) (string, error) {
	var challenge struct {
		VerificationID string `json:"verificationId"`
		Code           string `json:"code"`
	}
	if err := postJSON(fmt.Sprintf("http://%s/api/auth/otp/send", host), "", map[string]string{
		"callingCode": callingCode,
		"phone":       phone,
	}, &challenge); err != nil {
		return "", err
	}

	code := challenge.Code
	if code == "" {
		fmt.Print("Enter the code you received: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", err
		}
		code = strings.TrimSpace(line)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := postJSON(fmt.Sprintf("http://%s/api/auth/otp/verify", host), "", map[string]string{
		"verificationId": challenge.VerificationID,
		"code":           code,
	}, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func getTicket(host, token string) (string, error) {
	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := postJSON(fmt.Sprintf("http://%s/api/ws/ticket", host), token, nil, &result); err != nil {
		return "", err
	}
	return result.Ticket, nil
}
