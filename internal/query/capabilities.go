package query

const capabilitiesText = `I answer questions about your indexed files. Some questions are answered straight from the file catalog without the model:
- files from a year ("what files are from 2022 in my docs folder")
- structure, recent files, inventory and file-type counts
- counts by year, month, quarter, folder or extension
- timelines ("timeline of tax files 2020-2022")
- most used programming language and project counts

Some are answered from extracted values, and I abstain rather than guess:
- tax form lines ("2024 form 1040 line 9")
- yearly income and W-2 or 1099 amounts
- ranked CSV rows ("what restaurant was ranked number 1")
- single metric values, where canonical sources win over drafts

Everything else is answered by the local model using only retrieved passages, with the sources listed underneath.`

func capabilitiesAnswer() string {
	return capabilitiesText
}
