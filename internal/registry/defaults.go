package registry

import "fmt"

// Default returns the built-in registry for the national health survey
// extract (2011-2018 cycles): canonical names, encodings, sentinel
// codes, and the numeric classification used by the imputer.
func Default() *Registry {
	r := &Registry{
		Rename: map[string]string{
			// Demographics.
			"RIAGENDR": "Gender",
			"RIDAGEYR": "Age",
			"RIDEXPRG": "Pregnancy",
			"RIDRETH3": "Race",
			"INDFMPIR": "Poverty_Ratio",
			"DMDEDUC2": "Education_Level",
			"DMDMARTL": "Marital_Status",
			"SDMVPSU":  "PSU",
			"SDMVSTRA": "Strata",
			"WTMEC2YR": "MEC_Weight",
			// Habits and history.
			"HSD010": "General_Health_Cond",
			"SLQ050": "Trouble_Sleeping_Doc",
			"SMQ020": "100_Cigs_Lifetime",
			"ALQ111": "Alcohol_Tried",
			"PAQ650": "Vigorous_Activity",
			// Body measures.
			"BMXBMI":   "BMI",
			"BMXWAIST": "Waist_cm",
			"DXDTOPF":  "Body_Fat_Pct",
			"DXDTOLE":  "Lean_Mass_g",
			"DXXTRFAT": "Trunk_Fat_g",
			// Cardiovascular.
			"BPXSY1": "BP_Systolic",
			"BPXDI1": "BP_Diastolic",
			"LBXSCH": "Cholesterol_Total_mgdL",
			// Biochemistry.
			"LBXSGL":   "Glucose_mgdL",
			"LBXSUA":   "UricAcid_mgdL",
			"LBXSTR":   "Triglycerides_mgdL",
			"LBXSIR":   "Iron_ugdL",
			"LBXSCR":   "Creatinine_mgdL",
			"LBXSATSI": "Transferrin_Sat_Pct",
			// Inflammation and immunity.
			"LBXHSCRP": "CRP_mgL",
			"LBXWBCSI": "WBC_1000cells",
			"LBXHGB":   "Hemoglobin_g_dL",
			// Heavy metals.
			"LBXBCD": "Cadmium_ugL",
			"LBXBPB": "Lead_ugdL",
			"LBXTHG": "Mercury_Total_ugL",
			// Kidney and vitamins.
			"URDACT":   "Albumin_Creatinine_Ratio",
			"LBXVIDMS": "VitaminD_nmolL",
		},
		Encodings: map[string]map[int]float64{
			"Gender":            {1: 0, 2: 1}, // 0=Male, 1=Female
			"Vigorous_Activity": {1: 1, 2: 0}, // 1=Active, 0=Not active
		},
		MissingCodes: map[string][]float64{
			"Education_Level":      {7, 9},
			"Marital_Status":       {77, 99},
			"General_Health_Cond":  {7, 9},
			"Vigorous_Activity":    {7, 9},
			"100_Cigs_Lifetime":    {7, 9},
			"Alcohol_Tried":        {7, 9},
			"Trouble_Sleeping_Doc": {7, 9},
		},
		ImpossibleZero: []string{
			"Glucose_mgdL", "BMI", "UricAcid_mgdL", "Cholesterol_Total_mgdL",
		},
		IDColumn:               "SEQN",
		WeightColumn:           "MEC_Weight",
		PSUColumn:              "PSU",
		StratumColumn:          "Strata",
		ScoreColumn:            "PHQ9_Score",
		TargetColumn:           "Depression",
		FlagColumn:             "In_Analysis",
		MissingIndicatorSource: "Poverty_Ratio",
		MissingIndicatorColumn: "Poverty_Missing",
	}

	// Screening instrument items, 0-3 scale, sentinel codes 7 and 9.
	for i := 1; i <= 9; i++ {
		item := fmt.Sprintf("DPQ0%d0", i)
		r.InstrumentItems = append(r.InstrumentItems, item)
		r.MissingCodes[item] = []float64{7, 9}
	}

	r.Nutrients = []string{
		"Energy_kcal", "Protein_g", "Carbs_g", "SaturatedFat_g",
		"MonounsatFat_g", "PolyunsatFat_g", "DietaryChol_mg", "Fiber_g",
		"VitaminA_ug", "VitaminB1_mg", "VitaminB2_mg", "Niacin_mg",
		"VitaminB6_mg", "Folate_ug", "VitaminB12_ug", "VitaminC_mg",
		"VitaminE_mg", "Magnesium_mg", "Iron_mg", "Zinc_mg",
		"Selenium_ug", "Caffeine_mg", "Alcohol_g",
	}
	for _, n := range r.Nutrients {
		r.Rename["DR1T"+dietarySourceSuffix(n)] = n + "_D1"
		r.Rename["DR2T"+dietarySourceSuffix(n)] = n + "_D2"
	}

	numeric := []string{
		"Age", "Poverty_Ratio", "MEC_Weight", "BMI", "Height_cm",
		"Weight_kg", "Waist_cm", "Body_Fat_Pct", "Lean_Mass_g",
		"Trunk_Fat_g", "BP_Systolic", "BP_Diastolic",
		"Cholesterol_Total_mgdL", "Glucose_mgdL", "UricAcid_mgdL",
		"Triglycerides_mgdL", "Iron_ugdL", "Creatinine_mgdL",
		"Transferrin_Sat_Pct", "CRP_mgL", "WBC_1000cells",
		"Hemoglobin_g_dL", "Cadmium_ugL", "Lead_ugdL",
		"Mercury_Total_ugL", "Albumin_Creatinine_Ratio",
		"VitaminD_nmolL", "PHQ9_Score",
	}
	r.NumericColumns = make(map[string]bool, len(numeric)+3*len(r.Nutrients))
	for _, c := range numeric {
		r.NumericColumns[c] = true
	}
	// Averaged nutrient intakes and the per-day source columns are all
	// continuous.
	for _, n := range r.Nutrients {
		r.NumericColumns[n] = true
		r.NumericColumns[n+"_D1"] = true
		r.NumericColumns[n+"_D2"] = true
	}

	return r
}

// dietarySourceSuffix maps a canonical nutrient name to the raw survey
// column suffix shared by the day-1 (DR1T) and day-2 (DR2T) files.
func dietarySourceSuffix(nutrient string) string {
	suffixes := map[string]string{
		"Energy_kcal":     "KCAL",
		"Protein_g":       "PROT",
		"Carbs_g":         "CARB",
		"SaturatedFat_g":  "SFAT",
		"MonounsatFat_g":  "MFAT",
		"PolyunsatFat_g":  "PFAT",
		"DietaryChol_mg":  "CHOL",
		"Fiber_g":         "FIBE",
		"VitaminA_ug":     "VARA",
		"VitaminB1_mg":    "VB1",
		"VitaminB2_mg":    "VB2",
		"Niacin_mg":       "NIAC",
		"VitaminB6_mg":    "VB6",
		"Folate_ug":       "FOLA",
		"VitaminB12_ug":   "VB12",
		"VitaminC_mg":     "VC",
		"VitaminE_mg":     "VE",
		"Magnesium_mg":    "MAGN",
		"Iron_mg":         "IRON",
		"Zinc_mg":         "ZINC",
		"Selenium_ug":     "SELE",
		"Caffeine_mg":     "CAFF",
		"Alcohol_g":       "ALCO",
	}
	return suffixes[nutrient]
}
