package concept

import "github.com/shopspring/decimal"

// DefaultConcepts returns the electronic-payroll concept catalog.
func DefaultConcepts() []Concept {
	return []Concept{
		// Earnings
		earning("BASICO", "Sueldo Básico", "BASICO", true, "0", VariantGeneric),
		earning("HED", "Hora Extra Diurna", "HED", true, "25", VariantOvertime),
		earning("HEN", "Hora Extra Nocturna", "HEN", true, "75", VariantOvertime),
		earning("HRN", "Recargo Nocturno", "HRN", true, "35", VariantSurcharge),
		earning("HEDDF", "Hora Extra Diurna Dom/Fest", "HEDDF", true, "100", VariantOvertime),
		earning("HENDF", "Hora Extra Nocturna Dom/Fest", "HENDF", true, "150", VariantOvertime),
		earning("HRDDF", "Recargo Diurno Dom/Fest", "HRDDF", true, "75", VariantSurcharge),
		earning("HRNDF", "Recargo Nocturno Dom/Fest", "HRNDF", true, "110", VariantSurcharge),
		earning("COMISION", "Comisiones", "COMISION", true, "0", VariantGeneric),
		earning("BONIF_SALARIAL", "Bonificación Salarial", "BONIFICACION_S", true, "0", VariantGeneric),
		earning("VACACIONES_DISFRUTE", "Vacaciones Disfrutadas", "VACACIONES_COMUNES", true, "0", VariantLeave),
		earning("VACACIONES_DINERO", "Vacaciones Compensadas (Dinero)", "VACACIONES_COMPENSADAS", true, "0", VariantLeave),
		earning("INCAPACIDAD", "Incapacidad General", "INCAPACIDAD", true, "66.67", VariantIncapacity),
		earning("LICENCIA_MAT", "Licencia Maternidad/Paternidad", "LICENCIA_MP", true, "100", VariantLeave),
		earning("LICENCIA_REM", "Licencia Remunerada", "LICENCIA_R", true, "100", VariantLeave),
		earning("TRANSPORTE", "Auxilio de Transporte", LineTransportAllowance, false, "0", VariantGeneric),
		earning("CONECTIVIDAD", "Auxilio de Conectividad (Digital)", LineConnectivityAllowance, false, "0", VariantGeneric),
		earning("BONIF_NO_SALARIAL", "Bonificación No Salarial", LineNonSalarialBonus, false, "0", VariantGeneric),
		earning("VIATICOS_MANU_ALOJ", "Viáticos Manut. y Alojamiento (No Salarial)", "VIATICO_MANU_ALOJ_NS", false, "0", VariantGeneric),

		// Deductions
		deduction("SALUD", "Aporte Salud (Empleado)", "SALUD", "4"),
		deduction("PENSION", "Aporte Pensión (Empleado)", "PENSION", "4"),
		deduction("FSP_SOL", "Fondo Solidaridad Pensional", "FSP", "1"),
		deduction("FSP_SUB", "Fondo Subsistencia", "FSP_SUBSISTENCIA", "0"),
		deduction("RETENCION", "Retención en la Fuente", "RETENCION_FUENTE", "0"),
		deduction("LIBRANZA", "Libranza / Prestamo", "LIBRANZA", "0"),
		deduction("SINDICATO", "Cuota Sindical", "SINDICATO", "0"),
		deduction("SANCION", "Sanción Disciplinaria", "SANCION", "0"),
	}
}

func earning(code, name, external string, salarial bool, factor string, variant Variant) Concept {
	return Concept{
		Code:         code,
		Name:         name,
		Kind:         KindEarning,
		ExternalCode: external,
		Salarial:     salarial,
		Factor:       decimal.RequireFromString(factor),
		Variant:      variant,
	}
}

func deduction(code, name, external, factor string) Concept {
	return Concept{
		Code:         code,
		Name:         name,
		Kind:         KindDeduction,
		ExternalCode: external,
		Factor:       decimal.RequireFromString(factor),
		Variant:      VariantGeneric,
	}
}
