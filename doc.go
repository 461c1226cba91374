// Package tablestate keeps per-table UI state (sorting, column layout,
// selection, scroll position, notes) in memory and writes it to a settings
// endpoint only when the application asks.
//
// Many small UI changes to the same table coalesce into one cached entry:
//
//	cache := tablestate.New(gw)
//	key := tablestate.NewKey(userID, tablestate.PurposePractice, playlistID)
//	cache.Update(key, tablestate.TableState{Sorting: []tablestate.SortSpec{{ID: "title"}}})
//	status, err := cache.FlushImmediate(ctx, key, nil)
//
// Entries are dirty until a flush is confirmed with a 2xx status. Failed
// flushes leave the entry dirty and are not retried. The cache owns no timer:
// FlushDirty, FlushWhere and FlushImmediate are the only ways data leaves it.
//
// Flushes of one key are serialized, so two overlapping flushes never lose an
// update made between them.
package tablestate
