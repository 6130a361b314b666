package testutil

import (
	"iter"
	"strconv"

	"github.com/roach88/mapql/internal/ir"
	"github.com/roach88/mapql/internal/schema"
)

// Many2ManyTypes returns fresh descriptors for the Division / Employee /
// PhoneNumber schema:
//
//	Employee.phones:  Map<Division, PhoneNumber>
//	PhoneNumber.emps: Map<Division, Employee>
func Many2ManyTypes() []*ir.EntityType {
	return []*ir.EntityType{
		{
			Name:    "Division",
			IDField: "id",
			Fields: []ir.Field{
				{Name: "id", Kind: ir.FieldScalar, ScalarType: ir.TypeInt},
				{Name: "name", Kind: ir.FieldScalar, ScalarType: ir.TypeString},
			},
		},
		{
			Name:    "Employee",
			IDField: "empId",
			Fields: []ir.Field{
				{Name: "empId", Kind: ir.FieldScalar, ScalarType: ir.TypeInt},
				{Name: "phones", Kind: ir.FieldMap, KeyType: "Division", ValueType: "PhoneNumber"},
			},
		},
		{
			Name:    "PhoneNumber",
			IDField: "number",
			Fields: []ir.Field{
				{Name: "number", Kind: ir.FieldScalar, ScalarType: ir.TypeInt},
				{Name: "emps", Kind: ir.FieldMap, KeyType: "Division", ValueType: "Employee"},
			},
		},
	}
}

// Many2ManyRegistry returns a registry of Many2ManyTypes.
func Many2ManyRegistry() *schema.Registry {
	return schema.MustRegistry(Many2ManyTypes()...)
}

// Many2Many is an in-memory Employee / PhoneNumber / Division object graph.
type Many2Many struct {
	Registry  *schema.Registry
	Divisions []*ir.Instance
	Employees []*ir.Instance
	Phones    []*ir.Instance
}

// Many2ManyFixture builds numEmployees employees, each with phonesPerEmployee
// phone numbers. For every phone two divisions are created: the first keys
// the phone's emps entry for the employee, the second keys the employee's
// phones entry for the phone. Ids start at 1 and divisions are named "d"+id.
//
// Many2ManyFixture(2, 2) yields employees 1-2, phones 1-4 and divisions 1-8.
func Many2ManyFixture(numEmployees, phonesPerEmployee int) *Many2Many {
	m := &Many2Many{Registry: Many2ManyRegistry()}
	empID, phoneID, divID := 1, 1, 1

	for range numEmployees {
		e := m.newEmployee(empID)
		empID++
		for range phonesPerEmployee {
			p := m.newPhone(phoneID)
			phoneID++
			d1 := m.newDivision(divID)
			d2 := m.newDivision(divID + 1)
			divID += 2

			p.Map("emps").Put(d1, e)
			e.Map("phones").Put(d2, p)
		}
	}
	return m
}

// SharedDivisionsFixture builds numPhones phone numbers whose emps maps all
// hold the same entries {d1: e1, d2: e2, ...}, one per employee. Employee
// phones maps are left empty.
func SharedDivisionsFixture(numPhones, numEmployees int) *Many2Many {
	m := &Many2Many{Registry: Many2ManyRegistry()}
	for i := 1; i <= numEmployees; i++ {
		m.newDivision(i)
		m.newEmployee(i)
	}
	for i := 1; i <= numPhones; i++ {
		p := m.newPhone(i)
		for j, e := range m.Employees {
			p.Map("emps").Put(m.Divisions[j], e)
		}
	}
	return m
}

func (m *Many2Many) typ(name string) *ir.EntityType {
	t, _ := m.Registry.Lookup(name)
	return t
}

func (m *Many2Many) newDivision(id int) *ir.Instance {
	d := ir.NewInstance(m.typ("Division"), ir.IRInt(id))
	d.Set("name", ir.IRString("d"+strconv.Itoa(id)))
	m.Divisions = append(m.Divisions, d)
	return d
}

func (m *Many2Many) newEmployee(id int) *ir.Instance {
	e := ir.NewInstance(m.typ("Employee"), ir.IRInt(id))
	m.Employees = append(m.Employees, e)
	return e
}

func (m *Many2Many) newPhone(id int) *ir.Instance {
	p := ir.NewInstance(m.typ("PhoneNumber"), ir.IRInt(id))
	m.Phones = append(m.Phones, p)
	return p
}

// Instances returns the fixture instances of the named type in creation order.
func (m *Many2Many) Instances(typeName string) []*ir.Instance {
	switch typeName {
	case "Division":
		return m.Divisions
	case "Employee":
		return m.Employees
	case "PhoneNumber":
		return m.Phones
	default:
		return nil
	}
}

// All returns every instance: divisions, then employees, then phones.
func (m *Many2Many) All() []*ir.Instance {
	out := make([]*ir.Instance, 0, len(m.Divisions)+len(m.Employees)+len(m.Phones))
	out = append(out, m.Divisions...)
	out = append(out, m.Employees...)
	return append(out, m.Phones...)
}

// Roots returns a restartable root sequence for the named type.
func (m *Many2Many) Roots(typeName string) iter.Seq2[*ir.Instance, error] {
	return Seq(m.Instances(typeName)...)
}

// Seq adapts a slice of instances to a restartable root sequence.
func Seq(instances ...*ir.Instance) iter.Seq2[*ir.Instance, error] {
	return func(yield func(*ir.Instance, error) bool) {
		for _, inst := range instances {
			if !yield(inst, nil) {
				return
			}
		}
	}
}

// FailingSeq yields the given instances and then err.
func FailingSeq(err error, instances ...*ir.Instance) iter.Seq2[*ir.Instance, error] {
	return func(yield func(*ir.Instance, error) bool) {
		for _, inst := range instances {
			if !yield(inst, nil) {
				return
			}
		}
		yield(nil, err)
	}
}
