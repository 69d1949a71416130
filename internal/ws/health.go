package ws

import (
	"log"
	"net/http"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcStats reports the resident set size and CPU percentage of the
// running process.
type ProcStats func() (rss uint64, cpu float64, err error)

func processStats() (uint64, float64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return mem.RSS, 0, err
	}
	return mem.RSS, cpu, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Status:  "ok",
		Clients: s.broadcaster.ClientCount(),
		Seq:     s.broadcaster.Seq(),
	}
	if s.stats != nil {
		rss, cpu, err := s.stats()
		if err != nil {
			log.Printf("health: process stats: %v", err)
		}
		h.RSS, h.CPU = rss, cpu
	}
	writeJSON(w, http.StatusOK, h)
}
