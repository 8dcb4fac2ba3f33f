package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/sttbridge/internal/config"
)

// apiClient talks to the HTTP API of a running server.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// resolveServer picks --server, then server.address from the config file.
func resolveServer() (*apiClient, error) {
	if serverURL != "" {
		return newAPIClient(serverURL), nil
	}

	path, err := config.ResolvePath(configPath)
	if err != nil {
		return nil, err
	}
	addr := config.DefaultConfig().Server.Address
	if _, err := os.Stat(path); err == nil {
		cfg, err := config.Load(path, nil)
		if err != nil {
			return nil, err
		}
		addr = cfg.Server.Address
	}
	return newAPIClient(addr), nil
}

// call sends body as JSON and decodes the response into out. Non-2xx
// answers become errors carrying the server's message.
func (c *apiClient) call(method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode/100 != 2 {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Message)
		}
		return fmt.Errorf("%s %s: %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid response from %s: %w", path, err)
		}
	}
	return nil
}

func (c *apiClient) setMode(online bool) (bool, error) {
	var resp struct {
		OnlineMode bool `json:"online_mode"`
	}
	err := c.call(http.MethodPost, "/mode", map[string]bool{"online_mode": online}, &resp)
	return resp.OnlineMode, err
}

type pollResult struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

func (c *apiClient) poll() (pollResult, error) {
	var r pollResult
	err := c.call(http.MethodGet, "/transcription", nil, &r)
	return r, err
}

func (c *apiClient) sendChunk(raw []byte) error {
	body := map[string]string{"audio_chunk": base64.StdEncoding.EncodeToString(raw)}
	return c.call(http.MethodPost, "/audio", body, nil)
}

func modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "mode on|off",
		Short:     "Switch the server online or offline",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var online bool
			switch args[0] {
			case "on":
				online = true
			case "off":
			default:
				return fmt.Errorf("invalid mode %q (must be on or off)", args[0])
			}

			c, err := resolveServer()
			if err != nil {
				return err
			}
			applied, err := c.setMode(online)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "online_mode=%t\n", applied)
			return nil
		},
	}
}

func pollCmd() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Fetch and clear the latest transcription",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveServer()
			if err != nil {
				return err
			}

			for {
				r, err := c.poll()
				if err != nil {
					return err
				}
				if r.Status == "success" {
					fmt.Fprintln(cmd.OutOrStdout(), r.Text)
					return nil
				}
				if !wait {
					fmt.Fprintf(cmd.OutOrStdout(), "status=%s\n", r.Status)
					return nil
				}

				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(interval):
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "keep polling until a transcription arrives")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "polling interval with --wait")
	return cmd
}

func sendCmd() *cobra.Command {
	var chunkDuration time.Duration

	cmd := &cobra.Command{
		Use:   "send <file.raw>",
		Short: "Send a raw s16le 16 kHz mono file as audio chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			c, err := resolveServer()
			if err != nil {
				return err
			}

			chunks := splitChunks(raw, chunkDuration)
			for i, chunk := range chunks {
				if err := c.sendChunk(chunk); err != nil {
					return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d chunk(s), %d bytes\n", len(chunks), len(raw))
			return nil
		},
	}

	cmd.Flags().DurationVar(&chunkDuration, "chunk", 0, "split the file into chunks of this duration (0 sends it whole)")
	return cmd
}

// splitChunks cuts raw into whole-frame pieces of d. A zero d keeps raw whole.
func splitChunks(raw []byte, d time.Duration) [][]byte {
	const bytesPerSecond = 16000 * 2

	size := int(d.Seconds() * bytesPerSecond)
	size -= size % 2
	if size <= 0 || size >= len(raw) {
		return [][]byte{raw}
	}

	var out [][]byte
	for len(raw) > 0 {
		n := min(size, len(raw))
		out = append(out, raw[:n])
		raw = raw[n:]
	}
	return out
}
