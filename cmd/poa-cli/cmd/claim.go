package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler/request"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/submission"
)

var (
	claimServer  string
	claimAddress string
	claimFID     uint64
	claimTimeout time.Duration
	claimPoll    time.Duration
)

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// claimCmd 调用服务端领取，并轮询直到回到 idle
var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "通过服务端 API 领取出勤证明",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), claimTimeout)
		defer cancel()

		c := &apiClient{base: strings.TrimRight(claimServer, "/"), http: &http.Client{Timeout: 10 * time.Second}}
		out := cmd.OutOrStdout()

		var snap submission.Snapshot
		err := c.do(ctx, http.MethodPost, "/api/v1/claims", request.SubmitClaimRequest{
			Address:   claimAddress,
			Connected: true,
			FID:       claimFID,
		}, &snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "submitted: request_id=%s state=%s\n", snap.RequestID, snap.State)

		ticker := time.NewTicker(claimPoll)
		defer ticker.Stop()
		lastStatus := ""
		for snap.State == submission.StateSubmitting {
			select {
			case <-ctx.Done():
				return fmt.Errorf("still submitting after %s", claimTimeout)
			case <-ticker.C:
			}
			if err := c.do(ctx, http.MethodGet, "/api/v1/claims/"+claimAddress+"/state", nil, &snap); err != nil {
				return err
			}
			if snap.LastStatus != nil && string(snap.LastStatus.Name) != lastStatus {
				lastStatus = string(snap.LastStatus.Name)
				fmt.Fprintf(out, "status: %s %s\n", lastStatus, snap.TxHash)
			}
			// error 后仍停留在 submitting 说明服务端使用 legacy 策略
			if snap.LastError != nil {
				break
			}
		}

		if snap.LastError != nil {
			return fmt.Errorf("claim failed: %s: %s", snap.LastError.Code, snap.LastError.Message)
		}
		fmt.Fprintf(out, "done: tx_hash=%s\n", snap.TxHash)
		return nil
	},
}

type apiClient struct {
	base string
	http *http.Client
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("api error %d: %s", env.Code, env.Msg)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func init() {
	f := claimCmd.Flags()
	f.StringVar(&claimServer, "server", "http://localhost:8080", "poa-server 地址")
	f.StringVar(&claimAddress, "address", "", "领取地址")
	f.Uint64Var(&claimFID, "fid", 0, "宿主平台用户 id")
	f.DurationVar(&claimTimeout, "timeout", 3*time.Minute, "等待结果的最长时间")
	f.DurationVar(&claimPoll, "poll", time.Second, "轮询间隔")
	_ = claimCmd.MarkFlagRequired("address")

	rootCmd.AddCommand(claimCmd)
}
