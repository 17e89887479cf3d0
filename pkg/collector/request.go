package collector

import "github.com/sagan-monitoring/sagan/pkg/message"

type (
	// PollEvent is a report from an external explorer poller. Optional
	// fields reflect what each source returns.
	PollEvent struct {
		Source           string  `json:"source"`
		NetworkID        string  `json:"network_id"`
		CurrentHeight    *uint64 `json:"current_height,omitempty"`
		MissedBlocks     *int    `json:"missed_blocks,omitempty"`
		LastSignedHeight *uint64 `json:"last_signed_height,omitempty"`
	}

	// request is a typed request to the collector service worker.
	// Exactly one of the operation fields is set.
	request struct {
		envelope     *message.Envelope
		networkState string
		pagerEvents  bool
		pollEvent    *PollEvent

		resp chan response
	}

	// response carries the worker's answer back to the submitter.
	response struct {
		snapshot *Snapshot
		pages    []string
		err      error
	}
)
