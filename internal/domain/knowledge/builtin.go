package knowledge

// Cluster names used by the builtin table.
const (
	ClusterHeadache    = "headache"
	ClusterRespiratory = "respiratory"
	ClusterInfection   = "infection"
	ClusterGastro      = "gastro"
	ClusterCardiac     = "cardiac"
	ClusterSkin        = "skin"
)

var builtinConcepts = []Concept{
	{ID: "s_headache", Name: "Headache", Synonyms: []string{"headaches", "head pain", "head hurts", "head ache", "pounding head"}, Cluster: ClusterHeadache},
	{ID: "s_fever", Name: "Fever", Synonyms: []string{"high temperature", "feverish", "temperature", "febrile", "chills"}, Cluster: ClusterInfection},
	{ID: "s_cough", Name: "Cough", Synonyms: []string{"coughing", "coughs", "dry cough", "wet cough"}, Cluster: ClusterRespiratory},
	{ID: "s_sore_throat", Name: "Sore throat", Synonyms: []string{"throat pain", "scratchy throat", "painful swallowing"}, Cluster: ClusterRespiratory},
	{ID: "s_photophobia", Name: "Sensitivity to light", Synonyms: []string{"light sensitivity", "sensitive to light", "photophobia", "bright lights hurt"}, Cluster: ClusterHeadache,
		Question: "Does bright light bother you or make your symptoms worse?"},
	{ID: "s_nausea", Name: "Nausea", Synonyms: []string{"nauseous", "nauseated", "feel sick", "feeling sick", "queasy"}, Cluster: ClusterGastro},
	{ID: "s_neck_stiffness", Name: "Neck stiffness", Synonyms: []string{"stiff neck", "neck is stiff", "can't bend my neck"}, Cluster: ClusterHeadache, Seriousness: SeriousnessSerious,
		Question: "Is your neck stiff, so that it hurts to bend your chin to your chest?"},
	{ID: "s_runny_nose", Name: "Runny nose", Synonyms: []string{"running nose", "stuffy nose", "blocked nose", "congestion", "sneezing"}, Cluster: ClusterRespiratory},
	{ID: "s_shortness_of_breath", Name: "Shortness of breath", Synonyms: []string{"short of breath", "breathless", "difficulty breathing", "trouble breathing", "can't breathe"}, Cluster: ClusterRespiratory, Seriousness: SeriousnessSerious},
	{ID: "s_chest_pain", Name: "Chest pain", Synonyms: []string{"chest hurts", "chest tightness", "tight chest", "pressure in my chest"}, Cluster: ClusterCardiac, Seriousness: SeriousnessEmergency},
	{ID: "s_vomiting", Name: "Vomiting", Synonyms: []string{"vomit", "throwing up", "threw up", "puking"}, Cluster: ClusterGastro},
	{ID: "s_diarrhea", Name: "Diarrhea", Synonyms: []string{"diarrhoea", "loose stools", "watery stools", "the runs"}, Cluster: ClusterGastro},
	{ID: "s_abdominal_pain", Name: "Abdominal pain", Synonyms: []string{"stomach ache", "stomachache", "stomach pain", "belly pain", "tummy ache", "cramps"}, Cluster: ClusterGastro},
	{ID: "s_fatigue", Name: "Fatigue", Synonyms: []string{"tired", "tiredness", "exhausted", "exhaustion", "no energy"}},
	{ID: "s_dizziness", Name: "Dizziness", Synonyms: []string{"dizzy", "lightheaded", "light-headed", "vertigo", "room spinning"}, Cluster: ClusterHeadache},
	{ID: "s_visual_aura", Name: "Visual disturbances", Synonyms: []string{"aura", "flashing lights", "zigzag lines", "blurred vision", "blurry vision"}, Cluster: ClusterHeadache},
	{ID: "s_confusion", Name: "Confusion", Synonyms: []string{"confused", "disoriented", "can't think clearly"}, Cluster: ClusterHeadache, Seriousness: SeriousnessEmergency},
	{ID: "s_rash", Name: "Skin rash", Synonyms: []string{"rash", "spots on my skin", "red spots", "hives"}, Cluster: ClusterSkin},
	{ID: "s_muscle_aches", Name: "Muscle aches", Synonyms: []string{"body aches", "muscle pain", "aching muscles", "achy"}, Cluster: ClusterInfection},
	{ID: "s_palpitations", Name: "Palpitations", Synonyms: []string{"racing heart", "heart racing", "pounding heart", "heart is racing", "fluttering"}, Cluster: ClusterCardiac},
	{ID: "s_sweating", Name: "Sweating", Synonyms: []string{"sweaty", "cold sweat", "night sweats"}, Cluster: ClusterCardiac},
	{ID: "p_smoking", Name: "Smoking", Kind: KindRiskFactor, Synonyms: []string{"smoker", "i smoke", "smoke cigarettes"}, Cluster: ClusterCardiac,
		Question: "Do you smoke, or have you smoked regularly in the past?"},
}

var builtinConditions = []Condition{
	{ID: "c_migraine", Name: "Migraine", Severity: SeverityModerate, Acuteness: "chronic_with_exacerbations", Prevalence: "common",
		Weights: []Weight{{"s_headache", 0.4}, {"s_photophobia", 0.3}, {"s_nausea", 0.2}, {"s_visual_aura", 0.3}, {"s_dizziness", 0.1}}},
	{ID: "c_tension_headache", Name: "Tension-type headache", CommonName: "Tension headache", Severity: SeverityMild, Acuteness: "chronic_with_exacerbations", Prevalence: "very_common",
		Weights: []Weight{{"s_headache", 0.45}, {"s_fatigue", 0.2}, {"s_neck_stiffness", 0.1}}},
	{ID: "c_meningitis", Name: "Meningitis", Severity: SeveritySevere, Acuteness: "acute", Prevalence: "rare",
		Weights: []Weight{{"s_neck_stiffness", 0.4}, {"s_fever", 0.3}, {"s_headache", 0.2}, {"s_photophobia", 0.15}, {"s_confusion", 0.3}, {"s_rash", 0.15}}},
	{ID: "c_common_cold", Name: "Common cold", Severity: SeverityMild, Acuteness: "acute", Prevalence: "very_common",
		Weights: []Weight{{"s_runny_nose", 0.4}, {"s_sore_throat", 0.3}, {"s_cough", 0.25}, {"s_fever", 0.1}}},
	{ID: "c_influenza", Name: "Influenza", CommonName: "Flu", Severity: SeverityModerate, Acuteness: "acute", Prevalence: "common",
		Weights: []Weight{{"s_fever", 0.35}, {"s_muscle_aches", 0.3}, {"s_cough", 0.2}, {"s_fatigue", 0.2}, {"s_headache", 0.1}}},
	{ID: "c_bronchitis", Name: "Acute bronchitis", CommonName: "Chest cold", Severity: SeverityModerate, Acuteness: "acute", Prevalence: "common",
		Weights: []Weight{{"s_cough", 0.45}, {"s_shortness_of_breath", 0.2}, {"s_fever", 0.15}, {"s_fatigue", 0.1}}},
	{ID: "c_pneumonia", Name: "Pneumonia", Severity: SeveritySevere, Acuteness: "acute", Prevalence: "moderate",
		Weights: []Weight{{"s_cough", 0.25}, {"s_fever", 0.25}, {"s_shortness_of_breath", 0.35}, {"s_chest_pain", 0.15}}},
	{ID: "c_gastroenteritis", Name: "Gastroenteritis", CommonName: "Stomach flu", Severity: SeverityModerate, Acuteness: "acute", Prevalence: "common",
		Weights: []Weight{{"s_vomiting", 0.35}, {"s_diarrhea", 0.4}, {"s_nausea", 0.25}, {"s_abdominal_pain", 0.2}, {"s_fever", 0.1}}},
	{ID: "c_acute_coronary_syndrome", Name: "Acute coronary syndrome", CommonName: "Heart attack", Severity: SeveritySevere, Acuteness: "acute", Prevalence: "moderate",
		Weights: []Weight{{"s_chest_pain", 0.45}, {"s_shortness_of_breath", 0.2}, {"s_sweating", 0.25}, {"p_smoking", 0.1}, {"s_palpitations", 0.1}}},
	{ID: "c_panic_attack", Name: "Panic attack", Severity: SeverityMild, Acuteness: "acute", Prevalence: "common",
		Weights: []Weight{{"s_palpitations", 0.35}, {"s_dizziness", 0.2}, {"s_shortness_of_breath", 0.15}, {"s_sweating", 0.15}, {"s_chest_pain", 0.1}}},
}

var builtin = MustTable(builtinConcepts, builtinConditions)

// Builtin returns the table shipped with the binary.
func Builtin() *Table {
	return builtin
}
