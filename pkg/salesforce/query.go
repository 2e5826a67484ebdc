package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Contact is a person record with the lifecycle field resolved by name.
type Contact struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Stage     string
}

// ActivePicklist returns the active picklist values of object.field.
func ActivePicklist(ctx context.Context, c Client, object, field string) ([]PicklistValue, string, error) {
	desc, err := c.DescribeSObject(ctx, object)
	if err != nil {
		return nil, "", err
	}
	f := desc.Field(field)
	if f == nil {
		return nil, "", eris.Errorf("sf: field %s.%s not found", object, field)
	}
	if f.Type != "picklist" {
		return nil, "", eris.Errorf("sf: field %s.%s is %s, not picklist", object, field, f.Type)
	}

	out := make([]PicklistValue, 0, len(f.PicklistValues))
	for _, v := range f.PicklistValues {
		if v.Active {
			out = append(out, v)
		}
	}
	return out, f.InlineHelpText, nil
}

// FindContactByID fetches one contact. Returns nil if no record matches.
func FindContactByID(ctx context.Context, c Client, object, stageField, id string) (*Contact, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE Id = '%s' LIMIT 1",
		strings.Join(contactFields(stageField), ", "), object, escapeSoql(id),
	)

	var records []map[string]any
	if err := c.Query(ctx, soql, &records); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find contact by id %s", id))
	}
	if len(records) == 0 {
		return nil, nil
	}
	ct := toContact(records[0], stageField)
	return &ct, nil
}

// SearchContacts matches query against first name, last name, or email.
func SearchContacts(ctx context.Context, c Client, object, stageField, query string, limit int) ([]Contact, error) {
	like := "'%" + escapeSoqlLike(query) + "%'"
	soql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE FirstName LIKE %s OR LastName LIKE %s OR Email LIKE %s LIMIT %d",
		strings.Join(contactFields(stageField), ", "), object, like, like, like, limit,
	)

	var records []map[string]any
	if err := c.Query(ctx, soql, &records); err != nil {
		return nil, eris.Wrap(err, "sf: search contacts")
	}
	out := make([]Contact, 0, len(records))
	for _, r := range records {
		out = append(out, toContact(r, stageField))
	}
	return out, nil
}

func contactFields(stageField string) []string {
	return []string{"Id", "FirstName", "LastName", "Email", stageField}
}

func toContact(rec map[string]any, stageField string) Contact {
	return Contact{
		ID:        stringField(rec, "Id"),
		FirstName: stringField(rec, "FirstName"),
		LastName:  stringField(rec, "LastName"),
		Email:     stringField(rec, "Email"),
		Stage:     stringField(rec, stageField),
	}
}

func stringField(rec map[string]any, name string) string {
	s, _ := rec[name].(string)
	return s
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "\\'")
}

// escapeSoqlLike additionally escapes LIKE wildcards.
func escapeSoqlLike(s string) string {
	s = escapeSoql(s)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
