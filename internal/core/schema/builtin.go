package schema

// Resource names of the console screens.
const (
	CareNavigators = "care-navigators"
	Appointments   = "appointments"
	CarePlans      = "careplans"
	Patients       = "patients"
	Admins         = "admins"
)

var (
	CareNavigatorSchema = MustNew(Definition{
		Resource:         CareNavigators,
		DisplayName:      "Care navigator",
		Endpoint:         "/api/care-navigators",
		SearchableFields: []string{"name"},
		Fields: []Field{
			{Name: "name", Label: "Name", Type: FieldString, Required: true},
			{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
			{Name: "phone", Label: "Phone", Type: FieldString, Required: true},
			{Name: "status", Label: "Status", Type: FieldString, Default: "Active"},
		},
	})

	AppointmentSchema = MustNew(Definition{
		Resource:         Appointments,
		DisplayName:      "Appointment",
		Endpoint:         "/api/appointments",
		SearchableFields: []string{"appointmentId", "Doctor", "patientName"},
		Fields: []Field{
			{Name: "appointmentId", Label: "Appointment ID", Type: FieldString},
			{Name: "patientName", Label: "Patient", Type: FieldString},
			{Name: "appointmentDate", Label: "Date", Type: FieldDate, Required: true},
			{Name: "appointmentTime", Label: "Time", Type: FieldTime, Required: true},
			{Name: "status", Label: "Status", Type: FieldString, Default: "Scheduled"},
			{Name: "Doctor", Label: "Doctor", Type: FieldString, Required: true},
			{Name: "notes", Label: "Notes", Type: FieldText},
		},
	})

	CarePlanSchema = MustNew(Definition{
		Resource:         CarePlans,
		DisplayName:      "Care plan",
		Endpoint:         "/api/careplans",
		SearchableFields: []string{"patientname", "careNavigator", "planName"},
		Fields: []Field{
			{Name: "planName", Label: "Plan", Type: FieldString, Required: true},
			{Name: "patientname", Label: "Patient", Type: FieldString, Required: true},
			{Name: "careNavigator", Label: "Care navigator", Type: FieldString, Required: true},
			{Name: "status", Label: "Status", Type: FieldString, Default: "Active"},
			{Name: "documentUrl", Label: "Document", Type: FieldString},
		},
	})

	PatientSchema = MustNew(Definition{
		Resource:         Patients,
		DisplayName:      "Patient",
		Endpoint:         "/api/patients",
		SearchableFields: []string{"patientId", "patientName"},
		Fields: []Field{
			{Name: "patientId", Label: "Patient ID", Type: FieldString, Required: true},
			{Name: "patientName", Label: "Patient name", Type: FieldString, Required: true},
			{Name: "age", Label: "Age", Type: FieldNumber},
			{Name: "gender", Label: "Gender", Type: FieldString},
			{Name: "contact", Label: "Contact", Type: FieldString},
		},
	})

	// AdminSchema backs the admin profile screen. The password is only
	// enforced server-side on create so that edits need not re-enter it.
	AdminSchema = MustNew(Definition{
		Resource:         Admins,
		DisplayName:      "Admin",
		Endpoint:         "/api/admin",
		SearchableFields: []string{"email", "contact"},
		Fields: []Field{
			{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
			{Name: "password", Label: "Password", Type: FieldPassword, WriteOnly: true},
			{Name: "contact", Label: "Contact", Type: FieldString},
		},
	})
)

// Builtins returns the registry of every console screen.
func Builtins() *Registry {
	r, err := NewRegistry(CareNavigatorSchema, AppointmentSchema, CarePlanSchema, PatientSchema, AdminSchema)
	if err != nil {
		panic(err)
	}
	return r
}
