package ipc

import (
	"encoding/json"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PlaylistEvent emits a playlist transition.
func (c *Client) PlaylistEvent(playlist json.RawMessage, action, section string, item int) (*DispatchResponse, error) {
	var resp DispatchResponse
	req := PlaylistEventRequest{Playlist: playlist, Action: action, Section: section, Item: item}
	if err := c.client.Call("Bridge.PlaylistEvent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MediaOpen emits a media-open notification.
func (c *Client) MediaOpen(filename string) (*DispatchResponse, error) {
	return c.media("Bridge.MediaOpen", filename)
}

// MediaSyncStart emits a sync-start notification.
func (c *Client) MediaSyncStart(filename string) (*DispatchResponse, error) {
	return c.media("Bridge.MediaSyncStart", filename)
}

// MediaSyncStop emits a sync-stop notification.
func (c *Client) MediaSyncStop(filename string) (*DispatchResponse, error) {
	return c.media("Bridge.MediaSyncStop", filename)
}

// MediaSync emits a position tick.
func (c *Client) MediaSync(filename string, seconds float64) (*DispatchResponse, error) {
	var resp DispatchResponse
	req := MediaSyncRequest{Filename: filename, Seconds: seconds}
	if err := c.client.Call("Bridge.MediaSync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) media(method, filename string) (*DispatchResponse, error) {
	var resp DispatchResponse
	if err := c.client.Call(method, MediaRequest{Filename: filename}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Bridge.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Bridge.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
