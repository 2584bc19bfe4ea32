/*
Package storage persists relayed data requests.

Two backends implement Store:

  - BoltStore keeps everything in <dataDir>/drbridge.db (bbolt). Requests
    live in the "requests" bucket under 8-byte big-endian ids, so a cursor
    walks them in id order.
  - PostgresStore keeps them in the data_requests table (pgx pool). The
    schema is created on open.

# Watermark

Both backends track next_id, the length of the contiguous prefix of stored
ids. LastKnownID reports next_id-1. An id written out of order is stored
but does not move the watermark until every id below it is present, so a
lost write is fetched again instead of being skipped.

# Merging

Upsert never moves a request from finished back to new, never replaces a
stored payload, and keeps the first observed_at. Writing the same record
twice is a no-op apart from updated_at.
*/
package storage
