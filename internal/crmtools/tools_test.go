package crmtools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tudescuento/mcp-server-go/internal/crm"
	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/mcpservice"
	"github.com/tudescuento/mcp-server-go/sessions"
)

type fakeCRM struct {
	err error

	leads       []crm.CreateLeadRequest
	logQueries  []crm.SupportLogsQuery
	supportLogs []crm.CreateSupportLogRequest
}

func (f *fakeCRM) Categories(context.Context) ([]crm.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []crm.Category{{ID: 1, Name: "Salud", Descripcion: "Clínicas"}}, nil
}

func (f *fakeCRM) PublicMemberships(context.Context) (*crm.PublicMembershipsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &crm.PublicMembershipsResponse{Memberships: []crm.Membership{{
		ID: 3, Nombre: "Oro", PrecioMembresia: 150000, MesesDuracion: 12, NumeroBeneficiarios: 4,
		Descripcion: "Plan familiar", Color: "#FFD700",
		Categories: []crm.Category{{ID: 1, Name: "Salud", Descripcion: "Clínicas"}},
	}}}, nil
}

func (f *fakeCRM) MembershipDiscounts(_ context.Context, id int) (*crm.MembershipDiscountsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	pct := 15.0
	return &crm.MembershipDiscountsResponse{Discounts: []crm.MembershipDiscount{{
		Discount: crm.Discount{
			ID: 9, Nombre: "Consulta general", TipoBeneficio: crm.BenefitPercentage, Porcentaje: &pct,
			Activo: true, Condiciones: json.RawMessage(`["Solo lunes","Con cita"]`),
		},
		AlliedCommerce: crm.AlliedCommerceSummary{ID: 2, RazonSocial: "Clínica Norte"},
	}}}, nil
}

func (f *fakeCRM) AlliedCommerce(_ context.Context, id int) (*crm.AlliedCommerce, error) {
	if f.err != nil {
		return nil, f.err
	}
	fixed := 20000.0
	return &crm.AlliedCommerce{
		ID: id, Code: "CN-01", RazonSocial: "Clínica Norte", Email: "hola@norte.co",
		Discounts: []crm.Discount{{Nombre: "Examen", TipoBeneficio: crm.BenefitFixedValue, ValorFijo: &fixed, Activo: true}},
	}, nil
}

func (f *fakeCRM) AlliedCommercesByCategory(_ context.Context, id int) (*crm.CategoryWithAlliedCommerces, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &crm.CategoryWithAlliedCommerces{
		Category:        crm.Category{ID: id, Name: "Salud"},
		AlliedCommerces: []crm.AlliedCommerce{{ID: 2, RazonSocial: "Clínica Norte"}},
	}, nil
}

func (f *fakeCRM) CustomerByIdentification(_ context.Context, id string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"numero_identificacion":"` + id + `"}`), nil
}

func (f *fakeCRM) CreateLead(_ context.Context, req crm.CreateLeadRequest) (*crm.CreateLeadResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.leads = append(f.leads, req)
	return &crm.CreateLeadResponse{
		Message: "Lead creado exitosamente",
		Lead:    crm.Lead{ID: 77, Nombre: req.Nombre, Telefono: req.Telefono, Origen: req.Origen, Estado: "nuevo"},
	}, nil
}

func (f *fakeCRM) SupportLogs(_ context.Context, q crm.SupportLogsQuery) (*crm.Page[crm.SupportLog], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.logQueries = append(f.logQueries, q)
	return &crm.Page[crm.SupportLog]{CurrentPage: q.Page, LastPage: 1}, nil
}

func (f *fakeCRM) CreateSupportLog(_ context.Context, req crm.CreateSupportLogRequest) (*crm.CreateSupportLogResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.supportLogs = append(f.supportLogs, req)
	return &crm.CreateSupportLogResponse{
		Action: crm.ActionUpdated,
		Data: crm.SupportLog{
			ID: 5, NumeroIdentificacion: req.NumeroIdentificacion, Handovered: req.Handovered,
			CreatedAt: "2026-01-15T10:30:00.000000Z", UpdatedAt: "2026-01-15T11:00:00.000000Z",
		},
	}, nil
}

func call(t *testing.T, api API, name, args string) *mcp.CallToolResult {
	t.Helper()
	tc := mcpservice.NewToolsContainer(Tools(api)...)
	res, err := tc.CallTool(context.Background(), sessions.New("s1", time.Now()), &mcp.CallToolRequestReceived{
		Name:      name,
		Arguments: json.RawMessage(args),
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func text(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestToolCatalog(t *testing.T) {
	t.Parallel()

	tc := mcpservice.NewToolsContainer(Tools(&fakeCRM{})...)
	tools, err := tc.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name)
		if tool.Description == "" {
			t.Errorf("%s has no description", tool.Name)
		}
	}
	want := []string{
		"get_categories",
		"get_public_memberships",
		"get_membership_discounts",
		"get_allied_commerce",
		"get_allied_commerces_by_category",
		"get_costumer_by_identification",
		"create_lead",
		"get_support_logs",
		"create_support_log",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("tool names (-want +got):\n%s", diff)
	}

	for _, tool := range tools {
		if tool.Name != "create_lead" {
			continue
		}
		if diff := cmp.Diff([]string{"nombre", "telefono", "origen"}, tool.InputSchema.Required); diff != "" {
			t.Fatalf("create_lead required (-want +got):\n%s", diff)
		}
	}
}

func TestPublicMembershipsRendering(t *testing.T) {
	t.Parallel()

	res := call(t, &fakeCRM{}, "get_public_memberships", `{}`)
	if res.IsError {
		t.Fatalf("unexpected error result: %s", text(res))
	}
	out := text(res)
	for _, want := range []string{
		"Se encontraron 1 membresía(s)",
		"1. Oro (ID: 3)",
		"Precio: $150.000",
		"• Salud: Clínicas",
		jsonTrailer,
		`"precio_membresia": 150000`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMembershipDiscountsRendering(t *testing.T) {
	t.Parallel()

	out := text(call(t, &fakeCRM{}, "get_membership_discounts", `{"membership_id":3}`))
	for _, want := range []string{
		"para la membresía 3",
		"Comercio Aliado: Clínica Norte",
		"Descuento: 15% de rebaja",
		"Condiciones: Solo lunes; Con cita",
		"Activo: Sí",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAlliedCommerceHidesInternalID(t *testing.T) {
	t.Parallel()

	out := text(call(t, &fakeCRM{}, "get_allied_commerce", `{"allied_commerce_id":42}`))
	if !strings.Contains(out, "Precio fijo: $20.000") {
		t.Fatalf("fixed value not rendered:\n%s", out)
	}
	_, payload, _ := strings.Cut(out, jsonTrailer)
	if strings.Contains(payload, `"id": 42`) {
		t.Fatalf("payload leaks commerce id:\n%s", payload)
	}
}

func TestIDArgumentsAreValidated(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		tool, args, want string
	}{
		{"get_membership_discounts", `{"membership_id":0}`, "membership_id es requerido"},
		{"get_allied_commerce", `{"allied_commerce_id":0}`, "allied_commerce_id es requerido"},
		{"get_allied_commerces_by_category", `{"category_id":0}`, "category_id es requerido"},
		{"get_costumer_by_identification", `{"numero_identificacion":"  "}`, "numero_identificacion es requerido"},
	} {
		res := call(t, &fakeCRM{}, tc.tool, tc.args)
		if !res.IsError {
			t.Errorf("%s: want isError", tc.tool)
		}
		if !strings.Contains(text(res), tc.want) {
			t.Errorf("%s: want %q in %q", tc.tool, tc.want, text(res))
		}
	}
}

func TestCRMErrorsBecomeToolErrors(t *testing.T) {
	t.Parallel()

	api := &fakeCRM{err: &crm.APIError{Status: 404, Name: "NotFound", Message: "Membresía no encontrada"}}
	res := call(t, api, "get_membership_discounts", `{"membership_id":3}`)
	if !res.IsError {
		t.Fatal("want isError")
	}
	if want, got := "Membresía no encontrada", text(res); want != got {
		t.Fatalf("want %q got %q", want, got)
	}

	api = &fakeCRM{err: errors.New("")}
	res = call(t, api, "get_categories", `{}`)
	if want, got := "No se pudieron obtener las categorías", text(res); want != got {
		t.Fatalf("fallback message: want %q got %q", want, got)
	}
}

func TestCreateLead(t *testing.T) {
	t.Parallel()

	t.Run("trims and forwards", func(t *testing.T) {
		api := &fakeCRM{}
		res := call(t, api, "create_lead", `{"nombre":"  Ana ","telefono":"3001234567","origen":"Contacto Directo Por Whatsapp (Interés en oro)","email":" "}`)
		if res.IsError {
			t.Fatalf("unexpected error: %s", text(res))
		}
		want := []crm.CreateLeadRequest{{Nombre: "Ana", Telefono: "3001234567", Origen: "Contacto Directo Por Whatsapp (Interés en oro)"}}
		if diff := cmp.Diff(want, api.leads); diff != "" {
			t.Fatalf("lead (-want +got):\n%s", diff)
		}
		if !strings.Contains(text(res), "• ID: 77") {
			t.Fatalf("lead id missing: %s", text(res))
		}
	})

	t.Run("blank required field", func(t *testing.T) {
		api := &fakeCRM{}
		res := call(t, api, "create_lead", `{"nombre":"Ana","telefono":"   ","origen":"Contacto Directo Por Whatsapp (x)"}`)
		if !res.IsError || !strings.Contains(text(res), `"telefono"`) {
			t.Fatalf("want telefono error, got %+v", res)
		}
		if len(api.leads) != 0 {
			t.Fatal("CRM must not be called")
		}
	})

	t.Run("origin format", func(t *testing.T) {
		api := &fakeCRM{}
		res := call(t, api, "create_lead", `{"nombre":"Ana","telefono":"300","origen":"Instagram"}`)
		if !res.IsError || !strings.Contains(text(res), "Ejemplo válido") {
			t.Fatalf("want origen error, got %+v", res)
		}
	})

	t.Run("crm details", func(t *testing.T) {
		api := &fakeCRM{err: &crm.APIError{
			Status: 422, Name: "ValidationError", Message: "Datos inválidos",
			Details: map[string]any{"telefono": []any{"ya existe"}},
		}}
		res := call(t, api, "create_lead", `{"nombre":"Ana","telefono":"300","origen":"Contacto Directo Por Whatsapp (x)"}`)
		out := text(res)
		if !res.IsError || !strings.Contains(out, "Datos inválidos") || !strings.Contains(out, "ya existe") {
			t.Fatalf("unexpected result: %s", out)
		}
	})
}

func TestSupportLogsDefaultsPage(t *testing.T) {
	t.Parallel()

	api := &fakeCRM{}
	out := text(call(t, api, "get_support_logs", `{"numero_identificacion":"123","created_at_start":"2026-01-01"}`))
	want := []crm.SupportLogsQuery{{NumeroIdentificacion: "123", CreatedAtStart: "2026-01-01", Page: 1}}
	if diff := cmp.Diff(want, api.logQueries); diff != "" {
		t.Fatalf("query (-want +got):\n%s", diff)
	}
	for _, s := range []string{"desde 2026-01-01", "No se encontraron registros"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestCreateSupportLog(t *testing.T) {
	t.Parallel()

	t.Run("handovered is required", func(t *testing.T) {
		api := &fakeCRM{}
		res := call(t, api, "create_support_log", `{"numero_identificacion":"123","necesidad":"a","solucion":"b","consideraciones":"c"}`)
		if !res.IsError || !strings.Contains(text(res), "handovered") {
			t.Fatalf("want handovered error, got %+v", res)
		}
	})

	t.Run("false is a value", func(t *testing.T) {
		api := &fakeCRM{}
		res := call(t, api, "create_support_log", `{"numero_identificacion":"123","handovered":false,"necesidad":"a","solucion":"b","consideraciones":"c"}`)
		if res.IsError {
			t.Fatalf("unexpected error: %s", text(res))
		}
		if len(api.supportLogs) != 1 || api.supportLogs[0].Handovered {
			t.Fatalf("unexpected request: %+v", api.supportLogs)
		}
		out := text(res)
		for _, s := range []string{"ACTUALIZADO", "Caso: #5", "Última actualización: 15 de enero de 2026, 11:00"} {
			if !strings.Contains(out, s) {
				t.Errorf("output missing %q:\n%s", s, out)
			}
		}
	})
}

func TestGreetingPrompt(t *testing.T) {
	t.Parallel()

	p := Prompts()
	for _, tc := range []struct {
		args map[string]string
		want string
	}{
		{nil, "Saluda al cliente de manera amigable y profesional."},
		{map[string]string{"customer_name": "Ana"}, "Saluda al cliente Ana de manera amigable y profesional."},
	} {
		res, err := p.GetPrompt(context.Background(), nil, &mcp.GetPromptRequestReceived{Name: "customer_support_greeting", Arguments: tc.args})
		if err != nil {
			t.Fatalf("GetPrompt: %v", err)
		}
		if want, got := tc.want, res.Messages[0].Content.Text; want != got {
			t.Errorf("want %q got %q", want, got)
		}
	}
}

func TestCompanyResource(t *testing.T) {
	t.Parallel()

	contents, err := Resources().ReadResource(context.Background(), nil, CompanyInfoURI)
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if want, got := "text/plain", contents[0].MimeType; want != got {
		t.Fatalf("mime: want %q got %q", want, got)
	}
	if !strings.HasPrefix(contents[0].Text, "TuDescuento") {
		t.Fatalf("unexpected text: %q", contents[0].Text)
	}
}
