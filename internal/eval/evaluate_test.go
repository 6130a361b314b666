package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mapql/internal/ir"
	"github.com/roach88/mapql/internal/queryir"
	"github.com/roach88/mapql/internal/schema"
	"github.com/roach88/mapql/internal/testutil"
)

func mustPath(t *testing.T, m *testutil.Many2Many, query string) *queryir.AssociationPath {
	t.Helper()
	path, err := queryir.ParseAndResolve(query, m.Registry)
	require.NoError(t, err)
	return path
}

func run(t *testing.T, m *testutil.Many2Many, query string) []Row {
	t.Helper()
	path := mustPath(t, m, query)
	rows, err := Collect(Evaluate(path, m.Roots(path.Root.Name)))
	require.NoError(t, err)
	return rows
}

func scalars(rows []Row, col int) []ir.IRValue {
	out := make([]ir.IRValue, len(rows))
	for i, r := range rows {
		out[i] = r[col].Scalar
	}
	return out
}

func TestEvaluate_ValueNavigationOrdered(t *testing.T) {
	m := testutil.SharedDivisionsFixture(2, 2)

	rows := run(t, m, "select VALUE(x).empId from PhoneNumber p, in(p.emps) x order by x.empId")

	require.Len(t, rows, 4)
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(1), ir.IRInt(2), ir.IRInt(2)}, scalars(rows, 0))
}

func TestEvaluate_KeyAndKeyName(t *testing.T) {
	m := testutil.SharedDivisionsFixture(2, 2)

	rows := run(t, m, "select KEY(x), KEY(x).name from PhoneNumber p, in(p.emps) x")

	require.Len(t, rows, 4)
	for i, row := range rows {
		d := m.Divisions[i%2]
		require.Len(t, row, 2)
		assert.Equal(t, CellInstance, row[0].Kind)
		assert.Same(t, d, row[0].Instance)
		assert.Equal(t, d.Get("name"), row[1].Scalar)
	}
	assert.Equal(t, ir.IRString("d1"), rows[0][1].Scalar)
	assert.Equal(t, ir.IRString("d2"), rows[1][1].Scalar)
}

func TestEvaluate_EntryEqualsKeyValue(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)

	rows := run(t, m, "select ENTRY(p), KEY(p), VALUE(p), p from Employee e, in(e.phones) p")

	require.Len(t, rows, 4)
	for _, row := range rows {
		entry := row[0].Entry
		assert.Same(t, entry.Key, row[1].Instance)
		assert.Same(t, entry.Value, row[2].Instance)
		assert.Same(t, entry.Value, row[3].Instance, "bare navigation yields the value")
	}
}

func TestEvaluate_EntriesMatchMapContents(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)

	rows := run(t, m, "select e, ENTRY(p) from Employee e, in(e.phones) p")

	require.Len(t, rows, 4)
	for _, row := range rows {
		owner := row[0].Instance
		entry := row[1].Entry
		got, ok := owner.Maps["phones"].Get(entry.Key)
		require.True(t, ok)
		assert.Same(t, got, entry.Value)
	}
}

func TestEvaluate_TypeOfKey(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)

	rows := run(t, m, "select TYPE(KEY(p)), TYPE(VALUE(p)) from Employee e, in(e.phones) p")

	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, CellType, row[0].Kind)
		assert.Equal(t, "Division", row[0].Type.Name)
		assert.Equal(t, "PhoneNumber", row[1].Type.Name)
	}
}

func TestEvaluate_TypeOfComesFromInstance(t *testing.T) {
	m := testutil.Many2ManyFixture(1, 1)
	path := mustPath(t, m, "select TYPE(KEY(x)) from PhoneNumber p, in(p.emps) x")

	// a key whose runtime descriptor differs from the declared key type
	special := &ir.EntityType{Name: "SpecialDivision", IDField: "id"}
	p := ir.NewInstance(m.Phones[0].Type, ir.IRInt(99))
	p.Map("emps").Put(ir.NewInstance(special, ir.IRInt(1)), m.Employees[0])

	rows, err := Collect(Evaluate(path, testutil.Seq(p)))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Same(t, special, rows[0][0].Type)
}

func TestEvaluate_EmptyMapYieldsNoRows(t *testing.T) {
	m := testutil.SharedDivisionsFixture(2, 2)

	rows := run(t, m, "select KEY(p) from Employee e, in(e.phones) p")
	assert.Empty(t, rows)
}

func TestEvaluate_InsertionOrderWithoutOrderBy(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)

	rows := run(t, m, "select KEY(p).id from Employee e, in(e.phones) p")

	// employee 1 maps d2, d4; employee 2 maps d6, d8
	assert.Equal(t, []ir.IRValue{ir.IRInt(2), ir.IRInt(4), ir.IRInt(6), ir.IRInt(8)}, scalars(rows, 0))
}

func TestEvaluate_OrderIsStable(t *testing.T) {
	m := testutil.SharedDivisionsFixture(3, 2)

	rows := run(t, m, "select p.number, VALUE(x).empId from PhoneNumber p, in(p.emps) x order by x.empId")

	require.Len(t, rows, 6)
	// equal empIds keep input (phone) order
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(2), ir.IRInt(3), ir.IRInt(1), ir.IRInt(2), ir.IRInt(3)}, scalars(rows, 0))
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(1), ir.IRInt(1), ir.IRInt(2), ir.IRInt(2), ir.IRInt(2)}, scalars(rows, 1))
}

func TestEvaluate_OrderByRootField(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	path := mustPath(t, m, "select KEY(x).id from PhoneNumber p, in(p.emps) x order by p.number")

	reversed := []*ir.Instance{m.Phones[3], m.Phones[2], m.Phones[1], m.Phones[0]}
	rows, err := Collect(Evaluate(path, testutil.Seq(reversed...)))
	require.NoError(t, err)

	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(3), ir.IRInt(5), ir.IRInt(7)}, scalars(rows, 0))
}

func TestEvaluate_NullFilter(t *testing.T) {
	m := testutil.Many2ManyFixture(1, 2)
	e := m.Employees[0]
	absent := ir.NewInstance(m.Divisions[0].Type, ir.IRInt(100)).Set("name", ir.IRString("d100"))
	e.Map("phones").Put(absent, nil)

	isNull := run(t, m, "select KEY(p) from Employee e, in(e.phones) p WHERE VALUE(p) IS NULL")
	require.Len(t, isNull, 1)
	assert.Same(t, absent, isNull[0][0].Instance)

	notNull := run(t, m, "select KEY(p).id from Employee e, in(e.phones) p WHERE VALUE(p) IS NOT NULL")
	assert.Equal(t, []ir.IRValue{ir.IRInt(2), ir.IRInt(4)}, scalars(notNull, 0))
}

func TestEvaluate_NullFilterOnCompleteMapsIsEmpty(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)

	rows := run(t, m, "select KEY(p) from Employee e, in(e.phones) p WHERE VALUE(p) IS NULL")
	assert.Empty(t, rows)
}

func TestEvaluate_AbsentValueProjections(t *testing.T) {
	m := testutil.Many2ManyFixture(1, 0)
	divType, _ := m.Registry.Lookup("Division")
	key := ir.NewInstance(divType, ir.IRInt(1))
	m.Employees[0].Map("phones").Put(key, nil)

	rows := run(t, m, "select VALUE(p), VALUE(p).number, TYPE(VALUE(p)), ENTRY(p) from Employee e, in(e.phones) p")

	require.Len(t, rows, 1)
	row := rows[0]
	assert.True(t, row[0].IsNull())
	assert.True(t, row[1].IsNull())
	assert.True(t, row[2].IsNull())
	assert.False(t, row[3].IsNull())
	assert.Nil(t, row[3].Entry.Value)
}

func TestEvaluate_NullsSortFirst(t *testing.T) {
	m := testutil.Many2ManyFixture(1, 1)
	e := m.Employees[0]
	e.Map("phones").Put(ir.NewInstance(m.Divisions[0].Type, ir.IRInt(50)), nil)

	rows := run(t, m, "select KEY(p).id from Employee e, in(e.phones) p order by p.number")

	assert.Equal(t, []ir.IRValue{ir.IRInt(50), ir.IRInt(2)}, scalars(rows, 0))
}

func TestEvaluate_Comparison(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	m.Phones[0].Map("emps").Put(ir.NewInstance(m.Divisions[0].Type, ir.IRInt(100)), nil)

	rows := run(t, m, "select KEY(x).id from PhoneNumber p, in(p.emps) x where p.number >= 3")
	assert.Equal(t, []ir.IRValue{ir.IRInt(5), ir.IRInt(7)}, scalars(rows, 0))

	rows = run(t, m, "select KEY(x).id from PhoneNumber p, in(p.emps) x where x.empId = 1")
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(3)}, scalars(rows, 0))

	// absent values never compare, not even with <>
	rows = run(t, m, "select KEY(x).id from PhoneNumber p, in(p.emps) x where x.empId <> 5")
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(3), ir.IRInt(5), ir.IRInt(7)}, scalars(rows, 0))

	rows = run(t, m, "select p.number from PhoneNumber p where p.number <> 2")
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(3), ir.IRInt(4)}, scalars(rows, 0))
}

func TestEvaluate_ComparisonWithBoundParameter(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	path := mustPath(t, m, "select KEY(x).id from PhoneNumber p, in(p.emps) x where p.number = ?1")

	unbound, err := Collect(Evaluate(path, m.Roots("PhoneNumber")))
	require.NoError(t, err)
	assert.Empty(t, unbound)

	path.Where.Value = ir.IRInt(4)
	rows, err := Collect(Evaluate(path, m.Roots("PhoneNumber")))
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRInt(7)}, scalars(rows, 0))
}

func TestEvaluate_MapReachedThroughRef(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	office := &ir.EntityType{
		Name:    "Office",
		IDField: "id",
		Fields: []ir.Field{
			{Name: "id", Kind: ir.FieldScalar, ScalarType: ir.TypeInt},
			{Name: "head", Kind: ir.FieldRef, Target: "Employee"},
		},
	}
	reg := schema.MustRegistry(append(testutil.Many2ManyTypes(), office)...)

	o1 := ir.NewInstance(office, ir.IRInt(1))
	o1.Refs["head"] = m.Employees[1]
	o2 := ir.NewInstance(office, ir.IRInt(2))
	o3 := ir.NewInstance(office, ir.IRInt(3))
	o3.Refs["head"] = m.Employees[0]

	path, err := queryir.ParseAndResolve("select o.id, KEY(p).id, VALUE(p).number from Office o, in(o.head.phones) p", reg)
	require.NoError(t, err)

	rows, err := Collect(Evaluate(path, testutil.Seq(o1, o2, o3)))
	require.NoError(t, err)

	// o2 has no head and contributes no rows
	require.Len(t, rows, 4)
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(1), ir.IRInt(3), ir.IRInt(3)}, scalars(rows, 0))
	assert.Equal(t, []ir.IRValue{ir.IRInt(6), ir.IRInt(8), ir.IRInt(2), ir.IRInt(4)}, scalars(rows, 1))
	assert.Equal(t, []ir.IRValue{ir.IRInt(3), ir.IRInt(4), ir.IRInt(1), ir.IRInt(2)}, scalars(rows, 2))
}

func TestEvaluate_RootSelection(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)

	rows := run(t, m, "select p from PhoneNumber p")

	require.Len(t, rows, 4)
	for i, row := range rows {
		assert.Same(t, m.Phones[i], row[0].Instance)
	}
}

func TestEvaluate_Restartable(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	for _, q := range []string{
		"select KEY(p) from Employee e, in(e.phones) p",
		"select KEY(p) from Employee e, in(e.phones) p order by e.empId",
	} {
		path := mustPath(t, m, q)
		seq := Evaluate(path, m.Roots("Employee"))

		first, err := Collect(seq)
		require.NoError(t, err)
		second, err := Collect(seq)
		require.NoError(t, err)
		assert.Equal(t, first, second, q)
	}
}

func TestEvaluate_EarlyStop(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	path := mustPath(t, m, "select KEY(p) from Employee e, in(e.phones) p")

	n := 0
	for _, err := range Evaluate(path, m.Roots("Employee")) {
		require.NoError(t, err)
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestEvaluate_SupplierErrorPropagates(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	boom := errors.New("supplier failed")

	for _, q := range []string{
		"select KEY(p) from Employee e, in(e.phones) p",
		"select KEY(p) from Employee e, in(e.phones) p order by e.empId",
	} {
		path := mustPath(t, m, q)
		var rows []Row
		var gotErr error
		for row, err := range Evaluate(path, testutil.FailingSeq(boom, m.Employees[0])) {
			if err != nil {
				gotErr = err
				break
			}
			rows = append(rows, row)
		}
		assert.ErrorIs(t, gotErr, boom, q)
		assert.LessOrEqual(t, len(rows), 2)

		_, err := Collect(Evaluate(path, testutil.FailingSeq(boom)))
		assert.Equal(t, boom, err)
	}
}

func TestEvaluate_WrongRootType(t *testing.T) {
	m := testutil.Many2ManyFixture(1, 1)
	path := mustPath(t, m, "select KEY(p) from Employee e, in(e.phones) p")

	_, err := Collect(Evaluate(path, testutil.Seq(m.Phones[0])))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a Employee")
}

func TestEvaluate_DoesNotMutateInstances(t *testing.T) {
	m := testutil.Many2ManyFixture(2, 2)
	before := make([]int, len(m.Employees))
	for i, e := range m.Employees {
		before[i] = e.Maps["phones"].Len()
	}

	run(t, m, "select ENTRY(p) from Employee e, in(e.phones) p order by p.number")

	for i, e := range m.Employees {
		assert.Equal(t, before[i], e.Maps["phones"].Len())
	}
}
