package paymaster

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/avocetlabs/walletcore/pkg/erc4337/userop"
	"github.com/avocetlabs/walletcore/pkg/logger"
)

type jsonRPCRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Id      int           `json:"id"`
}

type jsonRPCResponse struct {
	Jsonrpc string               `json:"jsonrpc"`
	Id      int                  `json:"id"`
	Result  *SponsorshipResponse `json:"result,omitempty"`
	Error   *rpcError            `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("paymaster rpc error %d: %s", e.Code, e.Message)
}

// SponsorClient talks to a paymaster sponsorship service over JSON-RPC.
type SponsorClient struct {
	httpClient *resty.Client
	logger     sdklogging.Logger
	url        string
}

func NewSponsorClient(url string, log sdklogging.Logger) *SponsorClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Content-Type", "application/json")

	return &SponsorClient{
		httpClient: client,
		logger:     logger.EnsureLogger(log),
		url:        url,
	}
}

// SponsorUserOperation asks the service to sponsor op against the given
// EntryPoint and returns the normalized sponsorship.
func (c *SponsorClient) SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*Sponsorship, error) {
	wire, err := op.ToWire()
	if err != nil {
		return nil, err
	}

	req := jsonRPCRequest{
		Jsonrpc: "2.0",
		Method:  "pm_sponsorUserOperation",
		Params:  []interface{}{wire, entryPoint.Hex()},
		Id:      1,
	}

	var resp jsonRPCResponse
	httpResp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("paymaster request failed: %w", err)
	}

	if resp.Error != nil {
		c.logger.Error("paymaster rejected sponsorship", "code", resp.Error.Code, "message", resp.Error.Message)
		return nil, resp.Error
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("paymaster returned empty result, status %s", httpResp.Status())
	}

	sponsorship, err := resp.Result.Normalize()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sponsorship granted",
		"sender", op.Sender.Hex(),
		"paymaster", common.BytesToAddress(sponsorship.PaymasterAndData[:common.AddressLength]).Hex())
	return sponsorship, nil
}
