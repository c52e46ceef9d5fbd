package app

// seedDocuments is the starter medical reference set indexed into an empty
// knowledge base.
var seedDocuments = []IngestInput{
	{
		Title:    "Hypertension Management Guidelines",
		Category: "cardiology",
		Content: `Hypertension, or high blood pressure, is a common cardiovascular condition affecting millions worldwide. Normal blood pressure is typically below 120/80 mmHg. Hypertension is diagnosed when blood pressure consistently measures 140/90 mmHg or higher.

Treatment approaches include:
1. Lifestyle modifications: regular exercise, healthy diet (DASH diet), sodium restriction, weight management
2. Medications: ACE inhibitors, ARBs, calcium channel blockers, diuretics
3. Regular monitoring and follow-up

Complications of untreated hypertension include stroke, heart attack, kidney disease, and heart failure. Early detection and proper management are crucial for preventing these serious complications.`,
	},
	{
		Title:    "Type 2 Diabetes Management",
		Category: "endocrinology",
		Content: `Type 2 diabetes is a chronic metabolic disorder characterized by insulin resistance and relative insulin deficiency. It affects how the body processes glucose, leading to elevated blood sugar levels.

Risk factors include obesity and a sedentary lifestyle, family history of diabetes, age over 45, and certain ethnicities.

Management strategies:
1. Blood glucose monitoring
2. Dietary modifications (carbohydrate counting, portion control)
3. Regular physical activity
4. Medications: metformin, insulin, other antidiabetic drugs
5. Regular screening for complications

Complications can include diabetic retinopathy, nephropathy, neuropathy, and increased cardiovascular risk. Good glycemic control (HbA1c below 7%) significantly reduces complication risk.`,
	},
	{
		Title:    "Common Cold vs Flu Symptoms",
		Category: "general",
		Content: `Both the common cold and influenza are respiratory illnesses, but they are caused by different viruses and differ in severity.

Common cold symptoms develop gradually: runny or stuffy nose, sore throat, sneezing, mild cough, and mild fatigue. Fever is rare in adults.

Flu symptoms come on suddenly and are more severe: fever or chills, body aches, headache, dry cough, and pronounced fatigue that can last weeks.

Most colds and mild flu cases resolve with rest and fluids. Seek medical care for difficulty breathing, chest pain, persistent high fever, confusion, or symptoms that improve and then return worse. People at high risk, including young children, adults over 65, pregnant women, and those with chronic conditions, should consult a healthcare provider early.`,
	},
}
