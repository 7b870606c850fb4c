// Handler registry: expunge handlers and extension intro/reset/header/
// record handlers (§6, §4.D, §4.E). The core never reaches into a
// handler's internals — it calls through these narrow interfaces and
// nothing else.
package mdxsync

// ExpungeHandler is notified once per expunged record, before the
// record array is compacted (§4.D step 2). It sees the record's
// current bytes at its still-valid location and an opaque per-handler
// context supplied at Register time.
type ExpungeHandler interface {
	HandleExpunge(extensionID uint32, recordOffset uint32, record []byte, handlerCtx any) error
}

// expungeRegistration pairs one registered handler with its fixed
// byte offset into each record and its opaque context.
type expungeRegistration struct {
	extensionID  uint32
	recordOffset uint32
	handler      ExpungeHandler
	handlerCtx   any
}

// ExtIntroHandler is called once per descriptor in an EXT_INTRO
// record (§4.E). It returns the map index slot, per-record size, and
// whether this extension should be ignored (known but unused by this
// build) for the introduced extension.
type ExtIntroHandler interface {
	HandleExtIntro(extID uint32, recordSize uint32, name string) (mapIdx uint32, ignore bool, err error)
}

// ExtResetHandler is called on EXT_RESET; implementations typically
// clear any cached state keyed by the extension's reset ID.
type ExtResetHandler interface {
	HandleExtReset(extID uint32, newResetID uint32) error
}

// HandlerRegistry is the lazily-constructed set of handlers consulted
// during a sync (§3's sync context "expunge_handlers (lazy)").
type HandlerRegistry struct {
	expunge   []expungeRegistration
	introH    ExtIntroHandler
	resetH    ExtResetHandler
}

// NewHandlerRegistry returns an empty registry. Extension handlers are
// optional (nil is valid) since not every build enables extensions.
func NewHandlerRegistry(introH ExtIntroHandler, resetH ExtResetHandler) *HandlerRegistry {
	return &HandlerRegistry{introH: introH, resetH: resetH}
}

// RegisterExpunge adds an expunge handler for the given extension ID
// and fixed record byte offset.
func (r *HandlerRegistry) RegisterExpunge(extensionID uint32, recordOffset uint32, h ExpungeHandler, handlerCtx any) {
	r.expunge = append(r.expunge, expungeRegistration{
		extensionID:  extensionID,
		recordOffset: recordOffset,
		handler:      h,
		handlerCtx:   handlerCtx,
	})
}

// notifyExpunge invokes every registered expunge handler for one
// record, in registration order.
func (r *HandlerRegistry) notifyExpunge(record []byte) error {
	if r == nil {
		return nil
	}
	for _, reg := range r.expunge {
		if err := reg.handler.HandleExpunge(reg.extensionID, reg.recordOffset, record, reg.handlerCtx); err != nil {
			return err
		}
	}
	return nil
}
