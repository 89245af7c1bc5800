package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"apdash/pkg/models"
)

func TestOrderedDepartments(t *testing.T) {
	priority := []string{"杂货", "菜部", "冻部", "肉部"}
	records := []models.InvoiceRecord{
		{Department: "肉部"}, {Department: "Bakery"}, {Department: "菜部"},
		{Department: "Alcohol"}, {Department: "肉部"}, {Department: ""},
	}

	depts, idx := OrderedDepartments(records, priority)

	assert.Equal(t, []string{"菜部", "肉部", "Alcohol", "Bakery"}, depts)
	assert.Equal(t, 0, idx) // 杂货 absent

	depts, idx = OrderedDepartments(append(records, models.InvoiceRecord{Department: "杂货"}), priority)
	assert.Equal(t, "杂货", depts[0])
	assert.Equal(t, 0, idx)

	depts, _ = OrderedDepartments(records, nil)
	assert.Equal(t, []string{"Alcohol", "Bakery", "肉部", "菜部"}, depts)
}

func TestVendorNames(t *testing.T) {
	records := []models.InvoiceRecord{
		{VendorName: "beta"}, {VendorName: "Alpha"}, {VendorName: " "}, {VendorName: "BETA"}, {VendorName: "beta"},
	}

	assert.Equal(t, []string{"Alpha", "BETA", "beta"}, VendorNames(records))
}
