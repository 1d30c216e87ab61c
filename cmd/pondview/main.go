package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hardchor/frog-pond/internal/net/proto"
	"github.com/hardchor/frog-pond/internal/view"
	"github.com/hardchor/frog-pond/internal/world"
)

const writeWait = 10 * time.Second

type options struct {
	url         string
	fps         int
	width       float64
	height      float64
	seed        string
	reportEvery time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", "ws://localhost:8080/ws", "websocket endpoint of the pond server")
	flag.IntVar(&opts.fps, "fps", 60, "frames per second")
	flag.Float64Var(&opts.width, "width", 800, "viewport width in pixels")
	flag.Float64Var(&opts.height, "height", 600, "viewport height in pixels")
	flag.StringVar(&opts.seed, "seed", "", "seed for local motion")
	flag.DurationVar(&opts.reportEvery, "report", 5*time.Second, "interval between readout log lines")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("%v", err)
	}
}

// wsOutbox writes intents on the frame-loop goroutine, which is the only
// writer on the connection.
type wsOutbox struct {
	conn *websocket.Conn
}

func (o wsOutbox) Mate(a, b world.FrogSnapshot) error {
	frame, err := proto.EncodeMate(a, b)
	if err != nil {
		return err
	}
	return o.send(frame)
}

func (o wsOutbox) Position(id string, pos world.Position) error {
	frame, err := proto.EncodePosition(id, pos)
	if err != nil {
		return err
	}
	return o.send(frame)
}

func (o wsOutbox) send(frame []byte) error {
	if err := o.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return o.conn.WriteMessage(websocket.TextMessage, frame)
}

func run(ctx context.Context, opts options) error {
	if opts.fps <= 0 {
		opts.fps = 60
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", opts.url, err)
	}
	defer conn.Close()
	log.Printf("connected to %s", opts.url)

	cfg := view.DefaultPondConfig()
	cfg.Seed = opts.seed
	pond := view.NewPond(view.NewBoxCanvas(opts.width, opts.height), wsOutbox{conn: conn}, cfg)

	inbound := make(chan proto.ServerMessage, 1024)
	readErr := make(chan error, 1)
	go func() {
		defer close(inbound)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			msg, err := proto.DecodeServerMessage(payload)
			if err != nil {
				log.Printf("dropping frame: %v", err)
				continue
			}
			select {
			case inbound <- msg:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
	}()

	frames := time.NewTicker(time.Second / time.Duration(opts.fps))
	defer frames.Stop()
	var report <-chan time.Time
	if opts.reportEvery > 0 {
		reportTicker := time.NewTicker(opts.reportEvery)
		defer reportTicker.Stop()
		report = reportTicker.C
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			closeGracefully(conn)
			return nil
		case msg, ok := <-inbound:
			if !ok {
				pond.Clear()
				err := <-readErr
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("server closed the connection")
					return nil
				}
				return fmt.Errorf("reading from server: %w", err)
			}
			if err := pond.Apply(msg); err != nil {
				log.Printf("ignoring message: %v", err)
			}
		case <-frames.C:
			count++
			if err := pond.Frame(count); err != nil {
				pond.Clear()
				return err
			}
		case <-report:
			r := pond.Readout()
			log.Printf("frogs=%d mirrored=%d algae=%d oxygen=%d nitrogen=%d", r.Frogs, pond.Len(), r.Algae, r.Oxygen, r.Nitrogen)
		}
	}
}

func closeGracefully(conn *websocket.Conn) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
}
