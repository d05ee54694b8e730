package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/cwrk-planet/meet-service/internal/protocol"
)

// Subscribe открывает SSE-поток комнаты. К возврату подписка на сервере уже активна.
func (c *Client) Subscribe(ctx context.Context, roomID int64) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(ctx, http.MethodGet, "/api/connect/"+strconv.FormatInt(roomID, 10), "", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, errorFromResponse(resp)
	}

	return &sseStream{body: resp.Body, r: newReader(resp.Body), cancel: cancel}, nil
}

func newReader(r io.Reader) *bufio.Reader { return bufio.NewReaderSize(r, 16<<10) }

type sseStream struct {
	body   io.ReadCloser
	r      *bufio.Reader
	cancel context.CancelFunc
	once   sync.Once
}

// Next собирает строки data: до пустой строки; комментарии (": ping") пропускаются.
func (s *sseStream) Next() (protocol.Event, error) {
	var data []byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && len(data) == 0 {
				return nil, io.EOF
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if len(data) == 0 {
				continue
			}
			return protocol.UnmarshalEvent(data)
		case line[0] == ':':
			continue
		case bytes.HasPrefix(line, []byte("data:")):
			chunk := bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" "))
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
		}
	}
}

func (s *sseStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})

	return err
}
