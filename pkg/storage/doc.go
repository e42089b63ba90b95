// Package storage keeps raw upstream responses on disk so that a lookup can
// be inspected after the fact.
//
// Every file is written to a temporary name first and renamed into place,
// so a dump directory never holds half-written responses. File names carry
// a sequence number followed by a sanitised label:
//
//	m, err := storage.NewManager("./dumps")
//	name := m.NextName("https://stockx.com/air-jordan-1", "html")
//	path, err := m.WriteString(name, body)
//	// ./dumps/0001-stockx.com_air-jordan-1.html
package storage
