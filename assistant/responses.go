package assistant

const (
	Welcome = "Hello! Welcome to City Samadhan. How can I assist you today?"

	appUsageGeneral = "Our app helps you report and track civic issues. You can:\n1. Upload images of civic problems\n2. Provide descriptions in English or Hindi\n3. Track the status of your reported issues\n4. Vote on nearby issues\n5. Update your profile"

	reportIssue = "To report a new issue:\n1. Go to the 'Home' section in the footer\n2. Click on 'Report New Issue'\n3. Upload images of the problem\n4. Add a description (in English or Hindi)\n5. Select the issue category\n6. Submit your report"

	trackStatus = "To check your reported issues:\n1. Click on 'My Reports' in the footer\n2. View all your submitted reports\n3. Check the current status (Pending/Assigned/In Progress/Resolved)\n4. Click on any report for detailed progress updates"

	nearbyIssues = "In the 'Nearby' section, you can:\n1. View issues reported in your area\n2. Vote on important issues\n3. Issues with maximum votes get priority\n4. Help your community by participating in the voting"

	profile = "To manage your profile:\n1. Click on 'Profile' in the footer\n2. Update your username\n3. Change password\n4. Modify contact details\n5. Update your location"

	departments = "Your issues are automatically assigned to relevant departments:\n- Waste Management\n- Roads and Potholes\n- Street Lights\n- Water Supply\n- Sewage and Drainage\n- Public Parks\nExperts from these departments will handle your concerns"

	wasteManagement = "The Waste Management department handles issues such as:\n- Overproduction of waste\n- Improper waste segregation\n- Lack of waste management infrastructure\n- Health hazards from waste\n- Environmental pollution\n- Plastic pollution concerns\n- E-waste management\n- Hazardous waste mismanagement\n- Public awareness needs\n- Policy implementation issues"

	roadsAndPotholes = "The Roads and Potholes department addresses:\n- Poor quality road construction\n- Use of substandard materials\n- Early road damage issues\n- Inadequate drainage systems\n- Waterlogging problems\n- Heavy traffic load damage\n- Delayed maintenance and repairs\n- Safety hazards\n- Accident-prone areas\n- Traffic congestion due to road conditions"

	streetlights = "The Streetlight department manages:\n- Non-functional or damaged streetlights\n- Dark patches in public areas\n- Power fluctuation issues\n- Equipment maintenance\n- Insufficient light coverage\n- Delayed repairs\n- Cable or component theft\n- Installation planning\n- Public safety lighting\n- Accident risk prevention"

	waterSupply = "The Water Supply department handles:\n- Irregular water supply\n- Inadequate water distribution\n- Pipeline leakages\n- Water contamination issues\n- Low pressure problems\n- Unequal distribution\n- Illegal connections\n- Water theft cases\n- Pipeline repairs\n- Treatment facility issues"

	sewageAndDrainage = "The Sewage and Drainage department manages:\n- Choked or overflowing drains\n- Sewage leakage issues\n- Contamination prevention\n- Treatment plant operations\n- Infrastructure updates\n- Drainage system maintenance\n- Waterlogging prevention\n- Urban flooding issues\n- Network capacity problems\n- Environmental protection"

	publicParks = "The Public Parks department handles:\n- Park maintenance issues\n- Damaged facilities repair\n- Security concerns\n- Sanitation facilities\n- Play area maintenance\n- Equipment safety\n- Encroachment issues\n- Plant care and watering\n- Recreational space management\n- Public safety measures"

	language = "You can report issues in:\n1. English\n2. Hindi\nChoose your preferred language when submitting reports"

	navHome = "The 'Home' section allows you to:\n1. Report new civic issues\n2. View recent reports in your area\n3. Access quick actions"

	navMyReports = "In 'My Reports' you can:\n1. View all your submitted issues\n2. Check status updates\n3. Filter by department or status\n4. Add additional information if needed"

	Fallback = "I apologize, but I couldn't understand your query. Could you please rephrase it or choose from these topics:\n- How to report an issue\n- Track my reports\n- Nearby issues\n- Profile settings"
)
