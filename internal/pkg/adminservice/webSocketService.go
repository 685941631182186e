package adminservice

import (
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is interface for websocket handling in admin service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper tracks open subscriber connections by run ID
type WSConnKeeper struct {
	subscribers map[string]map[WsConn]struct{}
	connRun     map[WsConn]string
	lock        *sync.Mutex
	timeOut     time.Duration
}

// NewWSConnKeeper creates manager
func NewWSConnKeeper() *WSConnKeeper {
	res := &WSConnKeeper{}
	res.subscribers = make(map[string]map[WsConn]struct{})
	res.connRun = make(map[WsConn]string)
	res.lock = &sync.Mutex{}
	res.timeOut = time.Minute * 30 // max time limit for one connection
	return res
}

// HandleConnection loops until connection active. Messages received from the client
// are run IDs the client wants to follow
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.delete(conn)
	defer conn.Close()
	readCh := make(chan string)
	go func() {
		defer close(readCh)
		defer goapp.Log.Debug().Msg("read routine ended")
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Error().Err(err).Send()
				return
			}
			msg := strings.TrimSpace(string(message))
			goapp.Log.Debug().Str("msg", goapp.Sanitize(msg)).Msg("got msg")
			if msg != "" {
				readCh <- msg
			} else {
				time.Sleep(20 * time.Millisecond)
			}
		}
	}()

	ta := time.After(kp.timeOut)
loop:
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Msg("conn timeouted")
			break loop
		case msg, ok := <-readCh:
			if !ok {
				goapp.Log.Debug().Msg("conn read closed?")
				break loop
			}
			kp.subscribe(conn, msg)
			ta = time.After(kp.timeOut)
		}
	}
	goapp.Log.Info().Msg("handleConnection finish")
	return nil
}

func (kp *WSConnKeeper) delete(conn WsConn) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.deleteNoSync(conn)
}

func (kp *WSConnKeeper) deleteNoSync(conn WsConn) {
	id, found := kp.connRun[conn]
	if found {
		conns, found := kp.subscribers[id]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.subscribers, id)
			}
		}
	}
	delete(kp.connRun, conn)
	goapp.Log.Info().Int("active", len(kp.connRun)).Msg("dropped ws connection")
}

func (kp *WSConnKeeper) subscribe(conn WsConn, id string) {
	goapp.Log.Info().Str("ID", id).Msg("subscribe")
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.deleteNoSync(conn)
	kp.connRun[conn] = id
	conns, found := kp.subscribers[id]
	if !found {
		conns = map[WsConn]struct{}{}
		kp.subscribers[id] = conns
	}
	conns[conn] = struct{}{}
	goapp.Log.Info().Int("active", len(kp.connRun)).Msg("saved ws connection")
}

// GetConnections returns saved connections by provided run ID
func (kp *WSConnKeeper) GetConnections(id string) ([]WsConn, bool) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	cm, found := kp.subscribers[id]
	if found {
		res := []WsConn{}
		for c := range cm {
			res = append(res, c)
		}
		return res, true
	}
	goapp.Log.Debug().Str("ID", id).Msgf("no ws connections")
	return nil, false
}
