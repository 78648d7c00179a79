package novelty

import "github.com/shopspring/decimal"

// DefaultTypes returns the novelty types loaded by a fresh installation.
// Absence types pay through their PaymentPercentage; overtime and
// surcharge types point at the concept that prices their hours.
func DefaultTypes() []TypeDefinition {
	return []TypeDefinition{
		{
			Code: "IGE_66", Name: "Incapacidad General (>2 días)", ExternalCode: "IGE",
			PaymentPercentage:        decimal.RequireFromString("0.6667"),
			BlocksTransportAllowance: true, CreditsHealth: true, CreditsPension: true,
		},
		{
			Code: "LNR", Name: "Licencia No Remunerada", ExternalCode: "LNR",
			PaymentPercentage:        decimal.Zero,
			BlocksTransportAllowance: true, CreditsPension: true,
		},
		{
			Code: "VAC", Name: "Vacaciones Disfrutadas", ExternalCode: "VAC",
			PaymentPercentage:        decimal.NewFromInt(1),
			BlocksTransportAllowance: true, CreditsHealth: true, CreditsPension: true,
		},
		{
			Code: "LMA", Name: "Licencia Maternidad/Paternidad", ExternalCode: "LMA",
			PaymentPercentage:        decimal.NewFromInt(1),
			BlocksTransportAllowance: true, CreditsHealth: true, CreditsPension: true,
		},
		{
			Code: "INC", Name: "Incapacidad General", ExternalCode: "INCAPACIDAD",
			PaymentPercentage:        decimal.RequireFromString("0.6667"),
			BlocksTransportAllowance: true, CreditsHealth: true, CreditsPension: true,
		},
		{
			Code: "LR", Name: "Licencia Remunerada", ExternalCode: "LICENCIA_REM",
			PaymentPercentage:        decimal.NewFromInt(1),
			BlocksTransportAllowance: true, CreditsHealth: true, CreditsPension: true,
		},
		hourly("HED", "Hora Extra Diurna"),
		hourly("HEN", "Hora Extra Nocturna"),
		hourly("HRN", "Recargo Nocturno"),
		hourly("HEDDF", "Hora Extra Diurna Dom/Fest"),
		hourly("HENDF", "Hora Extra Nocturna Dom/Fest"),
		hourly("HRDDF", "Recargo Diurno Dom/Fest"),
		hourly("HRNDF", "Recargo Nocturno Dom/Fest"),
	}
}

func hourly(code, name string) TypeDefinition {
	return TypeDefinition{
		Code: code, Name: name, ExternalCode: code,
		PaymentPercentage: decimal.Zero,
		CreditsHealth:     true, CreditsPension: true, CreditsWorkRisk: true,
	}
}
