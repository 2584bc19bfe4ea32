package main

import (
	"fmt"

	"github.com/cuemby/drbridge/pkg/log"
	"github.com/cuemby/drbridge/pkg/storage"
)

// result summarizes a migration run
type result struct {
	Found       int
	Migrated    int
	LastKnownID uint64
}

// migrate copies every request in src into dst in id order. Upserts merge,
// so running it twice is safe. dst is not touched on a dry run.
func migrate(src, dst storage.Store, dryRun bool) (result, error) {
	var res result
	logger := log.WithComponent("migrate")

	reqs, err := src.ListRequests("")
	if err != nil {
		return res, fmt.Errorf("failed to list source requests: %w", err)
	}
	res.Found = len(reqs)
	logger.Info().Int("requests", res.Found).Msg("Found data requests to migrate")

	if dryRun || res.Found == 0 {
		return res, nil
	}

	for _, req := range reqs {
		if err := dst.Upsert(req); err != nil {
			return res, fmt.Errorf("failed to copy request %d: %w", req.ID, err)
		}
		res.Migrated++
		if res.Migrated%100 == 0 {
			logger.Info().Int("migrated", res.Migrated).Int("total", res.Found).Msg("Migrating")
		}
	}

	srcLast, srcOK, err := src.LastKnownID()
	if err != nil {
		return res, err
	}
	dstLast, dstOK, err := dst.LastKnownID()
	if err != nil {
		return res, err
	}
	if srcOK != dstOK || srcLast != dstLast {
		return res, fmt.Errorf("watermark mismatch after migration: source %d, destination %d", srcLast, dstLast)
	}
	res.LastKnownID = dstLast
	return res, nil
}
