// Package xcal renders events as xCal documents (RFC 6321) and reads them
// back.
package xcal

import "github.com/beevik/etree"

// Namespace is the xCal XML namespace
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// ContentType is the media type of an xCal document
const ContentType = "application/calendar+xml"

// Element names
const (
	TagICalendar  = "icalendar"
	TagVCalendar  = "vcalendar"
	TagVEvent     = "vevent"
	TagProperties = "properties"
	TagComponents = "components"

	TagText       = "text"
	TagDateTime   = "date-time"
	TagCalAddress = "cal-address"
	TagRecur      = "recur"
)

// Property names
const (
	PropProdID      = "prodid"
	PropVersion     = "version"
	PropName        = "name"
	PropUID         = "uid"
	PropDTStamp     = "dtstamp"
	PropDTStart     = "dtstart"
	PropDTEnd       = "dtend"
	PropSummary     = "summary"
	PropDescription = "description"
	PropLocation    = "location"
	PropCategories  = "categories"
	PropColor       = "color"
	PropAttendee    = "attendee"
	PropRRule       = "rrule"
	PropCourseID    = "x-course-id"
	PropTeacherID   = "x-teacher-id"
	PropClassID     = "x-class-id"
)

// dateTimeFormat is the RFC 6321 date-time value format in UTC
const dateTimeFormat = "2006-01-02T15:04:05Z"

// addNamespace declares the xCal namespace as the default on the root element
func addNamespace(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns", Namespace)
}
