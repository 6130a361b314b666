package ir

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDivision = &EntityType{
		Name:    "Division",
		IDField: "id",
		Fields: []Field{
			{Name: "id", Kind: FieldScalar, ScalarType: TypeInt},
			{Name: "name", Kind: FieldScalar, ScalarType: TypeString},
		},
	}
	testEmployee = &EntityType{
		Name:    "Employee",
		IDField: "empId",
		Fields: []Field{
			{Name: "empId", Kind: FieldScalar, ScalarType: TypeInt},
		},
	}
)

func TestNewInstance_StoresIDAsScalar(t *testing.T) {
	d := NewInstance(testDivision, IRInt(3)).Set("name", IRString("d3"))

	assert.Equal(t, IRInt(3), d.Get("id"))
	assert.Equal(t, IRString("d3"), d.Get("name"))
	assert.Equal(t, IRNull{}, d.Get("missing"))
	assert.Equal(t, InstanceKey("Division", IRInt(3)), d.Key())
}

func TestMapValue_InsertionOrder(t *testing.T) {
	owner := NewInstance(testEmployee, IRInt(1))
	m := owner.Map("phones")

	keys := []*Instance{
		NewInstance(testDivision, IRInt(9)),
		NewInstance(testDivision, IRInt(2)),
		NewInstance(testDivision, IRInt(5)),
	}
	for _, k := range keys {
		m.Put(k, nil)
	}

	var got []IRValue
	for e := range m.All() {
		got = append(got, e.Key.ID)
	}
	assert.Equal(t, []IRValue{IRInt(9), IRInt(2), IRInt(5)}, got)
	assert.Equal(t, 3, m.Len())
}

func TestMapValue_KeysUniqueByIdentity(t *testing.T) {
	owner := NewInstance(testEmployee, IRInt(1))
	m := owner.Map("phones")

	first := NewInstance(testDivision, IRInt(1))
	// Distinct pointer, same entity identity
	again := NewInstance(testDivision, IRInt(1))
	v1 := NewInstance(testEmployee, IRInt(10))
	v2 := NewInstance(testEmployee, IRInt(20))

	m.Put(first, v1)
	m.Put(again, v2)

	require.Equal(t, 1, m.Len())
	got, ok := m.Get(first)
	require.True(t, ok)
	assert.Same(t, v2, got)
}

func TestMapValue_AbsentValue(t *testing.T) {
	m := NewInstance(testEmployee, IRInt(1)).Map("phones")
	k := NewInstance(testDivision, IRInt(1))
	m.Put(k, nil)

	v, ok := m.Get(k)
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestMapValue_NilIsEmpty(t *testing.T) {
	var m *MapValue
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, slices.Collect(m.All()))
}

func TestMapValue_AllRestartable(t *testing.T) {
	m := NewInstance(testEmployee, IRInt(1)).Map("phones")
	m.Put(NewInstance(testDivision, IRInt(1)), nil)
	m.Put(NewInstance(testDivision, IRInt(2)), nil)

	seq := m.All()
	assert.Len(t, slices.Collect(seq), 2)
	assert.Len(t, slices.Collect(seq), 2)
}

func TestEntityType_Field(t *testing.T) {
	f, ok := testDivision.Field("name")
	require.True(t, ok)
	assert.Equal(t, FieldScalar, f.Kind)

	_, ok = testDivision.Field("nope")
	assert.False(t, ok)
	assert.Empty(t, testDivision.MapFields())
}
