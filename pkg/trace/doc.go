// Package trace decodes recorded memory-event traces into a uniform event
// stream.
//
// Two JSON shapes are accepted:
//
//   - [ShapeStructured]: a flat chronological list with inline scope markers
//     (scope_entry, scope_exit, access, allocation, deallocation).
//   - [ShapeLegacy]: a list of DataAccessEvent, AllocationEvent and
//     DeallocationEvent records plus a separately supplied scope tree. Only
//     the first tree in "scopes" is used as the root.
//
// [ShapeAuto] picks legacy when the document carries a top-level "scopes"
// field or when the first event uses one of the legacy type names.
//
// # Loading
//
// Input bytes may be gzip-compressed. [Load] and [Decode] try to decompress
// first and fall back to the plain bytes:
//
//	tr, err := trace.Load("run.json.gz", trace.WithShape(trace.ShapeAuto))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(len(tr.Events), tr.Shape)
//
// A trace without "events" (or, for the legacy shape, without a non-empty
// "scopes" list) is rejected with an [errors.ErrCodeMissingField] error.
// Events with an unknown type are skipped, logged and counted in
// [Trace.Skipped].
//
// [errors.ErrCodeMissingField]: github.com/matzehuels/memtower/pkg/errors
package trace
