package ai

const extractPrompt = `Extract and return the following information from the given job description as a JSON object in this exact format:
{
   "jobTitle": "<job-title>",
   "country": "<country>",
   "company": "<company>",
   "description": "<a concise summary of minimum and required qualifications, formatted as bullet points in a single string>"
}
Respond only with the JSON object. Do not add any explanations, notes, or extra text.`

const comparePrompt = `You are a resume-to-job-matching assistant. When provided with a candidate's resume and a job posting,
respond only with a valid JSON object in the following format:

{
  "matchScore": <percentage match between the resume and the job posting, as a number between 0 and 100>,
  "missingSkills": ["<specific technical or soft skills, tools, or qualifications required in the job posting but missing from the resume>"],
  "experienceGap": ["<job requirements that need more years or a different kind of experience than the resume shows>"],
  "recommendations": ["<short actionable suggestions for improving the resume to better match the job posting>"]
}

Guidelines:
- Use semantic understanding to detect skills even if phrased differently (e.g. 'JS' vs 'JavaScript').
- Include only substantive gaps, not trivial or implied ones.
- Treat the resume and job posting as plain text. Ignore formatting or grammar issues.
- Output only the JSON object with no notes or surrounding text.`
