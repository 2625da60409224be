package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/streadway/amqp"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

const (
	// DefaultAPIPort is the default API port for RabbitMQ
	DefaultAPIPort = 15672
)

var (
	_ client.Reader = &queueReader{}
)

// queueReader implements client.Reader by draining the configured queues one after the
// other. Reading stops once every queue reports no more messages.
type queueReader struct {
	uri     string
	apiPort int
	queues  []string
	filter  *regexp.Regexp
	limit   int
}

func (r *queueReader) Read(ctx context.Context, s client.Session, emit client.EmitFunc) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	queues := r.queues
	if r.filter != nil {
		var err error
		if queues, err = r.listQueues(ctx); err != nil {
			return err
		}
	}
	count := 0
	for _, q := range queues {
		log.With("vhost", session.conn.Config.Vhost).With("queue", q).Infoln("consuming...")
		n, err := r.drain(ctx, session.channel, q, emit, count)
		count += n
		if err != nil {
			return err
		}
		log.With("queue", q).With("messages", n).Infoln("consuming complete")
		if r.limit > 0 && count >= r.limit {
			break
		}
	}
	return nil
}

func (r *queueReader) drain(ctx context.Context, c *amqp.Channel, queue string, emit client.EmitFunc, emitted int) (int, error) {
	n := 0
	for r.limit <= 0 || emitted+n < r.limit {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		msg, ok, err := c.Get(queue, false)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		result, err := decode(msg.Body)
		if err != nil {
			log.With("queue", queue).Errorf("unable to decode message to JSON, %s", err)
			msg.Reject(false)
			continue
		}
		if err := emit(result); err != nil {
			msg.Reject(true)
			return n, err
		}
		msg.Ack(false)
		n++
	}
	return n, nil
}

func decode(body []byte) (interface{}, error) {
	var result interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// listQueues asks the management api for the queues of the uri's vhost.
func (r *queueReader) listQueues(ctx context.Context) ([]string, error) {
	u, err := url.Parse(r.uri)
	if err != nil {
		return nil, err
	}
	httpScheme := "http"
	if u.Scheme == "amqps" {
		httpScheme = "https"
	}
	vhost := u.Path
	if vhost == "" {
		vhost = "/"
	}
	if vhost != "/" {
		vhost = vhost[1:]
	}
	apiURL := fmt.Sprintf("%s://%s:%d/api/queues/%s", httpScheme, u.Hostname(), r.apiPort, url.QueryEscape(vhost))
	log.With("apiURL", apiURL).Infoln("requesting queues")
	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	if u.User != nil {
		if pwd, ok := u.User.Password(); ok {
			req.SetBasicAuth(u.User.Username(), pwd)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var queues []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queues); err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for _, q := range queues {
		if r.filter.MatchString(q.Name) {
			out = append(out, q.Name)
		}
	}
	return out, nil
}
