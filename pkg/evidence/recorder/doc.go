// Package recorder turns orchestration results into decision records and
// writes them to an evidence.Storage in the background.
//
// Record never blocks on storage. It enqueues onto a buffered channel and
// only waits, up to the write timeout, when that buffer is full; past the
// timeout the record is dropped and counted. Close drains the buffer before
// returning, so records accepted before shutdown are written.
//
//	rec := recorder.NewRecorder(store, recorder.ConfigFrom(cfg.Evidence))
//	defer rec.Close()
//
//	err := rec.Record(ctx, recorder.Entry{
//	    RequestID: requestID,
//	    Input:     input,
//	    Result:    result,
//	})
package recorder
