package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-inspector/pkg/wire"
)

type fakePlugin struct {
	id   int16
	name string
	runs int
}

func (p *fakePlugin) ID() int16                        { return p.id }
func (p *fakePlugin) Name() string                     { return p.name }
func (p *fakePlugin) Deserialize(r *wire.Reader) error { return nil }
func (p *fakePlugin) Run() error                       { p.runs++; return nil }
func (p *fakePlugin) Serialize(w *wire.Writer) error {
	w.WriteShort(p.id)
	return w.Err()
}

func TestRegistry_AddAndLookup(t *testing.T) {
	r := NewRegistry()
	spherical := &fakePlugin{id: 0x0100, name: "sphericalView"}
	scatter := &fakePlugin{id: 0x0101, name: "intersectionData"}

	require.NoError(t, r.Add(scatter))
	require.NoError(t, r.Add(spherical))

	assert.Equal(t, 2, r.Len())
	assert.Same(t, spherical, r.ByID(0x0100))
	assert.Same(t, scatter, r.ByName("intersectionData"))
	assert.Nil(t, r.ByID(0x0042))
	assert.Nil(t, r.ByName("missing"))
	assert.Equal(t, []int16{0x0100, 0x0101}, r.IDs(), "ids enumerate in ascending order")
}

func TestRegistry_RejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(&fakePlugin{id: 7, name: "first"}))

	err := r.Add(&fakePlugin{id: 7, name: "second"})
	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, int16(7), dupErr.ID)
	assert.Equal(t, "first", dupErr.Existing)

	assert.Equal(t, "first", r.ByID(7).Name(), "the original registration is kept")
}
