package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/holidayflow/agent/booking"
	"github.com/BaSui01/holidayflow/agent/orchestrator"
	"github.com/BaSui01/holidayflow/api/handlers"
	"github.com/BaSui01/holidayflow/internal/tlsutil"
)

const defaultOrchestratorAddr = "http://localhost:8000"

// =============================================================================
// ✈️ book 命令
// =============================================================================

func runBook(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	addr := fs.String("addr", defaultOrchestratorAddr, "Orchestrator address")
	from := fs.String("from", "Delhi", "Origin city")
	to := fs.String("to", "", "Destination city")
	date := fs.String("date", "", "Departure date YYYY-MM-DD (default today)")
	passengers := fs.Int("passengers", 1, "Number of passengers")
	nights := fs.Int("nights", 1, "Number of nights")
	room := fs.String("room", "", "Room type (default double)")
	demo := fs.Bool("demo", false, "Book the demo holiday (Delhi to Paris)")
	raw := fs.Bool("json", false, "Print the raw JSON result")
	timeout := fs.Duration("timeout", 2*time.Minute, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var req *http.Request
	var err error
	if *demo {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint(*addr, "/book-holiday/demo"), nil)
	} else {
		holiday := booking.HolidayRequest{
			Origin:        *from,
			Destination:   *to,
			DepartureDate: *date,
			Passengers:    *passengers,
			Nights:        *nights,
			RoomType:      *room,
		}
		if verr := holiday.Validate(); verr != nil {
			return verr
		}
		payload, merr := json.Marshal(holiday)
		if merr != nil {
			return merr
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint(*addr, "/book-holiday"), bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return err
	}

	body, err := doRequest(req)
	if err != nil {
		return err
	}
	if *raw {
		_, err = out.Write(body)
		return err
	}

	var result orchestrator.BookingResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode booking result: %w", err)
	}
	printBookingResult(out, &result)
	return nil
}

func printBookingResult(out io.Writer, r *orchestrator.BookingResult) {
	fmt.Fprintf(out, "%s\n", r.Summary)
	fmt.Fprintf(out, "Booking %s: %d/%d services booked (%.2f%%) in %dms\n",
		r.BookingID, r.SuccessfulBookings, r.TotalServices, r.SuccessRate, r.DurationMs)
	for _, o := range r.Results {
		mark := "✔"
		if !o.Succeeded() {
			mark = "✘"
		}
		fmt.Fprintf(out, "\n%s %s [%s]\n", mark, o.Service, o.Kind)
		if o.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", o.Error)
		}
		for _, line := range strings.Split(strings.TrimSpace(o.Message), "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

// =============================================================================
// 📡 status 命令
// =============================================================================

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	addr := fs.String("addr", defaultOrchestratorAddr, "Orchestrator address")
	timeout := fs.Duration("timeout", 30*time.Second, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(*addr, "/agents/status"), nil)
	if err != nil {
		return err
	}
	body, err := doRequest(req)
	if err != nil {
		return err
	}

	var resp handlers.AgentsStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode agents status: %w", err)
	}

	domains := make([]string, 0, len(resp.Agents))
	for d := range resp.Agents {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	for _, d := range domains {
		s := resp.Agents[d]
		if s.Reachable {
			version := ""
			if s.Card != nil {
				version = s.Card.Version
			}
			fmt.Fprintf(out, "%-7s up    %s (v%s, %dms)\n", d, s.URL, version, s.LatencyMs)
			continue
		}
		fmt.Fprintf(out, "%-7s down  %s: %s\n", d, s.URL, s.Error)
	}
	return nil
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	addr := fs.String("addr", defaultOrchestratorAddr, "Server address (orchestrator or agent)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := tlsutil.SecureHTTPClient(5 * time.Second)
	resp, err := client.Get(endpoint(*addr, "/health"))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	fmt.Fprintln(out, "OK")
	return nil
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func endpoint(addr, path string) string {
	return strings.TrimRight(addr, "/") + path
}

// doRequest 执行请求, 非 200 响应按统一错误结构解析
func doRequest(req *http.Request) ([]byte, error) {
	resp, err := tlsutil.SecureHTTPClient(0).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	var apiResp handlers.Response
	if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != nil {
		return nil, fmt.Errorf("%s (%s, status %d)", apiResp.Error.Message, apiResp.Error.Code, resp.StatusCode)
	}
	return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
}
