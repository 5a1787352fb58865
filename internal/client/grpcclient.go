// Package client is a thin gRPC client for the logbook service.
package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	gs "github.com/dmitrijs2005/medlogbook/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type GRPCClient struct {
	conn        grpc.ClientConnInterface
	closer      func() error
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if c.accessToken != "" {
		ctx = withAccessToken(ctx, c.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL without TLS. Every call carries
// accessToken and is encoded with the logbook JSON codec.
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(gs.CodecName)),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.closer = conn.Close
	return c, nil
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func invoke[Resp any](ctx context.Context, c *GRPCClient, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, gs.FullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) Ping(ctx context.Context) (string, error) {
	resp, err := invoke[gs.PingResponse](ctx, c, gs.MethodPing, &gs.PingRequest{})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *GRPCClient) CreateEntry(ctx context.Context, category string, payload json.RawMessage) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodCreateEntry, &gs.CreateEntryRequest{Category: category, Payload: payload})
}

func (c *GRPCClient) EditEntry(ctx context.Context, id string, payload json.RawMessage) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodEditEntry, &gs.EditEntryRequest{ID: id, Payload: payload})
}

func (c *GRPCClient) DeleteEntry(ctx context.Context, id string) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodDeleteEntry, &gs.EntryIDRequest{ID: id})
}

func (c *GRPCClient) SubmitEntry(ctx context.Context, id string) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodSubmitEntry, &gs.EntryIDRequest{ID: id})
}

func (c *GRPCClient) SignEntry(ctx context.Context, id string, remark *string) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodSignEntry, &gs.SignEntryRequest{ID: id, Remark: remark})
}

func (c *GRPCClient) RejectEntry(ctx context.Context, id, remark string) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodRejectEntry, &gs.RejectEntryRequest{ID: id, Remark: remark})
}

func (c *GRPCClient) BulkSign(ctx context.Context, ids []string) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodBulkSign, &gs.BulkSignRequest{IDs: ids})
}

func (c *GRPCClient) GetEntry(ctx context.Context, id string) (*gs.Entry, error) {
	resp, err := invoke[gs.GetEntryResponse](ctx, c, gs.MethodGetEntry, &gs.EntryIDRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

func (c *GRPCClient) ListOwnEntries(ctx context.Context, category string) ([]*gs.Entry, error) {
	return c.list(ctx, gs.MethodListOwnEntries, category)
}

func (c *GRPCClient) ListForReview(ctx context.Context, category string) ([]*gs.Entry, error) {
	return c.list(ctx, gs.MethodListForReview, category)
}

func (c *GRPCClient) BulkSignCandidates(ctx context.Context, category string) ([]*gs.Entry, error) {
	return c.list(ctx, gs.MethodBulkSignCandidates, category)
}

func (c *GRPCClient) list(ctx context.Context, method, category string) ([]*gs.Entry, error) {
	resp, err := invoke[gs.ListEntriesResponse](ctx, c, method, &gs.ListEntriesRequest{Category: category})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *GRPCClient) GetAutoReview(ctx context.Context) (map[string]bool, error) {
	resp, err := invoke[gs.AutoReviewSettingsResponse](ctx, c, gs.MethodGetAutoReview, &gs.AutoReviewSettingsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

func (c *GRPCClient) SetAutoReview(ctx context.Context, category string, enabled bool) (*gs.Result, error) {
	return invoke[gs.Result](ctx, c, gs.MethodSetAutoReview, &gs.SetAutoReviewRequest{Category: category, Enabled: enabled})
}

func (c *GRPCClient) SignatureHistory(ctx context.Context, id string) ([]*gs.Signature, error) {
	resp, err := invoke[gs.SignaturesResponse](ctx, c, gs.MethodSignatureHistory, &gs.EntryIDRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Signatures, nil
}

func (c *GRPCClient) SignaturesBySigner(ctx context.Context, signerID string, limit int) ([]*gs.Signature, error) {
	resp, err := invoke[gs.SignaturesResponse](ctx, c, gs.MethodSignaturesBySigner, &gs.SignaturesBySignerRequest{SignerID: signerID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Signatures, nil
}

func (c *GRPCClient) PresignUpload(ctx context.Context, id, fileName string) (*gs.PresignResponse, error) {
	return invoke[gs.PresignResponse](ctx, c, gs.MethodPresignUpload, &gs.PresignUploadRequest{ID: id, FileName: fileName})
}

func (c *GRPCClient) PresignDownload(ctx context.Context, id string) (string, error) {
	resp, err := invoke[gs.PresignResponse](ctx, c, gs.MethodPresignDownload, &gs.EntryIDRequest{ID: id})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}
