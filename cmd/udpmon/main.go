// Command udpmon listens for Tempest hub broadcasts on the local network
// and prints each decoded record. Useful for checking that a hub is
// reachable before pointing the ETL service at it.
//
// Usage:
//
//	go run ./cmd/udpmon -addr :50222 -count 10
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/tempest"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("addr", ":50222", "UDP address to listen on")
	count := flag.Int("count", 10, "number of datagrams to capture (0 for unlimited)")
	raw := flag.Bool("raw", false, "print the raw datagram alongside the decoded record")
	flag.Parse()

	conn, err := net.ListenPacket("udp", *addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", *addr, err)
	}
	defer conn.Close()

	log.Printf("listening on %s", conn.LocalAddr())

	buf := make([]byte, 1024)
	for i := 0; *count == 0 || i < *count; i++ {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if *raw {
			log.Printf("recv %d bytes from %s: %s", n, src, buf[:n])
		}

		rec, err := tempest.Decode(buf[:n])
		if err != nil {
			log.Printf("decode error from %s: %v", src, err)
			continue
		}

		pretty, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("re-encode record: %w", err)
		}
		fmt.Printf("%s %s %s\n", rec.Type(), rec.Serial(), pretty)
	}
	return nil
}
